package contracts

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/hilthontt/encore/internal/domain"
	"github.com/hilthontt/encore/internal/infrastructure/validate"
)

// ErrMalformedMessage is returned when a body is not a JSON object.
var ErrMalformedMessage = errors.New("malformed message body")

// NotificationMessage is the payload consumed from NotificationsQueue.
type NotificationMessage struct {
	Title        string           `json:"title" validate:"required"`
	Sender       string           `json:"sender" validate:"required"`
	UserID       int64            `json:"user_id"`
	Notification string           `json:"notification" validate:"required"`
	Relevance    domain.Relevance `json:"relevance,omitempty" validate:"oneof=low medium high"`
}

// DecodeNotificationMessage parses and validates body. Unknown fields are
// dropped, a missing relevance defaults to low, and user_id accepts an
// integer or a string holding one. Parse failures wrap ErrMalformedMessage;
// schema failures are validate.FieldErrors.
func DecodeNotificationMessage(body []byte) (*NotificationMessage, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedMessage, err)
	}
	if fields == nil {
		return nil, fmt.Errorf("%w: body is null", ErrMalformedMessage)
	}

	var (
		msg  NotificationMessage
		errs validate.FieldErrors
	)

	decodeString := func(name string, dst *string) {
		raw, ok := fields[name]
		if !ok {
			return // left empty, reported by the required rule
		}
		if err := json.Unmarshal(raw, dst); err != nil || isNull(raw) {
			errs = append(errs, &validate.FieldError{Field: name, Message: "must be a string"})
		}
	}

	decodeString("title", &msg.Title)
	decodeString("sender", &msg.Sender)
	decodeString("notification", &msg.Notification)

	var relevance string
	decodeString("relevance", &relevance)
	msg.Relevance = domain.Relevance(relevance)
	if _, ok := fields["relevance"]; !ok {
		msg.Relevance = domain.RelevanceLow
	}

	if raw, ok := fields["user_id"]; !ok {
		errs = append(errs, &validate.FieldError{Field: "user_id", Message: "this field is required"})
	} else if id, err := decodeInteger(raw); err != nil {
		errs = append(errs, &validate.FieldError{Field: "user_id", Message: err.Error()})
	} else {
		msg.UserID = id
	}

	if err := validate.Struct(msg); err != nil {
		var fes validate.FieldErrors
		if !errors.As(err, &fes) {
			return nil, err
		}
		for _, fe := range fes {
			if !errs.Has(fe.Field) {
				errs = append(errs, fe)
			}
		}
	}

	if len(errs) > 0 {
		return nil, sortFieldErrors(errs)
	}
	return &msg, nil
}

func decodeInteger(raw json.RawMessage) (int64, error) {
	errNotInteger := errors.New("must be an integer")

	if isNull(raw) {
		return 0, errNotInteger
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return 0, errNotInteger
		}
		return id, nil
	}

	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, errNotInteger
	}
	if id, err := n.Int64(); err == nil {
		return id, nil
	}
	f, err := n.Float64()
	if err != nil || f != math.Trunc(f) || f > math.MaxInt64 || f < math.MinInt64 {
		return 0, errNotInteger
	}
	return int64(f), nil
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func sortFieldErrors(errs validate.FieldErrors) validate.FieldErrors {
	sort.Slice(errs, func(i, j int) bool { return errs[i].Field < errs[j].Field })
	return errs
}
