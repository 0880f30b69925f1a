package models

import (
	"fmt"
	"reflect"
	"time"

	"servicehub/store"

	"github.com/mitchellh/mapstructure"
)

var timeType = reflect.TypeOf(time.Time{})

// Decode copies a store document into one of the model structs. Numbers
// are decoded weakly since documents written by older clients mix ints,
// floats and numeric strings.
func Decode(doc store.Document, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       stringToTimeHook,
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(doc.Data); err != nil {
		return fmt.Errorf("error decoding document %s: %w", doc.ID, err)
	}
	return nil
}

func stringToTimeHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if to != timeType || from.Kind() != reflect.String {
		return data, nil
	}
	s := data.(string)
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}

func DecodeBooking(doc store.Document) (*Booking, error) {
	var b Booking
	if err := Decode(doc, &b); err != nil {
		return nil, err
	}
	b.ID = doc.ID
	return &b, nil
}

func DecodeConversation(doc store.Document) (*Conversation, error) {
	var c Conversation
	if err := Decode(doc, &c); err != nil {
		return nil, err
	}
	c.ID = doc.ID
	return &c, nil
}

func DecodeMessages(docs []store.Document) ([]Message, error) {
	msgs := make([]Message, 0, len(docs))
	for _, doc := range docs {
		var m Message
		if err := Decode(doc, &m); err != nil {
			return nil, err
		}
		m.ID = doc.ID
		msgs = append(msgs, m)
	}
	return msgs, nil
}

func DecodeUser(doc store.Document) (*User, error) {
	var u User
	if err := Decode(doc, &u); err != nil {
		return nil, err
	}
	u.ID = doc.ID
	return &u, nil
}

func DecodeReviews(docs []store.Document) ([]Review, error) {
	reviews := make([]Review, 0, len(docs))
	for _, doc := range docs {
		var r Review
		if err := Decode(doc, &r); err != nil {
			return nil, err
		}
		r.ID = doc.ID
		reviews = append(reviews, r)
	}
	return reviews, nil
}
