package logging

type Category string
type SubCategory string
type ExtraKey string

const (
	General         Category = "General"
	IO              Category = "IO"
	Internal        Category = "Internal"
	Redis           Category = "Redis"
	RabbitMQ        Category = "RabbitMQ"
	Producer        Category = "Producer"
	Consumer        Category = "Consumer"
	MongoDB         Category = "MongoDB"
	Postgres        Category = "Postgres"
	Validation      Category = "Validation"
	RequestResponse Category = "RequestResponse"
	Prometheus      Category = "Prometheus"
)

const (
	// General
	Startup         SubCategory = "Startup"
	Shutdown        SubCategory = "Shutdown"
	RateLimiting    SubCategory = "RateLimiting"
	ExternalService SubCategory = "ExternalService"

	// Messaging
	Connect SubCategory = "Connect"
	Publish SubCategory = "Publish"
	Consume SubCategory = "Consume"
	Relay   SubCategory = "Relay"

	// Notification pipeline
	Parse    SubCategory = "Parse"
	Validate SubCategory = "Validate"
	Enrich   SubCategory = "Enrich"
	Persist  SubCategory = "Persist"
	Push     SubCategory = "Push"

	// Storage
	Select    SubCategory = "Select"
	Insert    SubCategory = "Insert"
	Update    SubCategory = "Update"
	Delete    SubCategory = "Delete"
	Migration SubCategory = "Migration"
)

const (
	AppName        ExtraKey = "AppName"
	LoggerName     ExtraKey = "Logger"
	ClientIp       ExtraKey = "ClientIp"
	HostIp         ExtraKey = "HostIp"
	Method         ExtraKey = "Method"
	StatusCode     ExtraKey = "StatusCode"
	BodySize       ExtraKey = "BodySize"
	Path           ExtraKey = "Path"
	Latency        ExtraKey = "Latency"
	RequestBody    ExtraKey = "RequestBody"
	ResponseBody   ExtraKey = "ResponseBody"
	ErrorMessage   ExtraKey = "ErrorMessage"
	Queue          ExtraKey = "Queue"
	DeliveryTag    ExtraKey = "DeliveryTag"
	Redelivered    ExtraKey = "Redelivered"
	MessageID      ExtraKey = "MessageId"
	UserID         ExtraKey = "UserId"
	SongID         ExtraKey = "SongId"
	CommentID      ExtraKey = "CommentId"
	NotificationID ExtraKey = "NotificationId"
	Attempt        ExtraKey = "Attempt"
)
