package cart

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
)

// recordVersion is bumped whenever the persisted layout changes. Records
// with any other version are discarded on load.
const recordVersion = 1

// Encode serializes items into the persisted cart record:
//
//	{"version":1,"items":[{"id":"...","name":"...","price":1,"image":"...","category":"...","quantity":1}]}
func Encode(items []LineItem) []byte {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("version")
	e.Int(recordVersion)
	e.FieldStart("items")
	e.ArrStart()
	for _, li := range items {
		e.ObjStart()
		e.FieldStart("id")
		e.Str(li.ProductID)
		e.FieldStart("name")
		e.Str(li.Name)
		e.FieldStart("price")
		e.Int64(li.Price)
		e.FieldStart("image")
		e.Str(li.Image)
		e.FieldStart("category")
		e.Str(li.Category)
		e.FieldStart("quantity")
		e.Int(li.Quantity)
		e.ObjEnd()
	}
	e.ArrEnd()
	e.ObjEnd()
	return e.Bytes()
}

// Decode parses a persisted cart record and validates it. Unknown fields are
// skipped; a wrong version or any invariant violation is an error that
// matches ErrCorruptRecord.
func Decode(data []byte) ([]LineItem, error) {
	items, err := decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptRecord, err)
	}
	return items, nil
}

func decode(data []byte) ([]LineItem, error) {
	var (
		version int
		items   []LineItem
	)
	d := jx.DecodeBytes(data)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "version":
			v, err := d.Int()
			if err != nil {
				return errors.Wrap(err, "version")
			}
			version = v
		case "items":
			return d.Arr(func(d *jx.Decoder) error {
				li, err := decodeItem(d)
				if err != nil {
					return err
				}
				items = append(items, li)
				return nil
			})
		default:
			return d.Skip()
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "decode cart")
	}
	if version != recordVersion {
		return nil, errors.Errorf("unsupported cart record version %d", version)
	}
	if err := Validate(items); err != nil {
		return nil, err
	}
	return items, nil
}

func decodeItem(d *jx.Decoder) (LineItem, error) {
	var li LineItem
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			li.ProductID, err = d.Str()
		case "name":
			li.Name, err = d.Str()
		case "price":
			li.Price, err = d.Int64()
		case "image":
			li.Image, err = d.Str()
		case "category":
			li.Category, err = d.Str()
		case "quantity":
			li.Quantity, err = d.Int()
		default:
			err = d.Skip()
		}
		if err != nil {
			return errors.Wrap(err, key)
		}
		return nil
	})
	return li, err
}

// SessionStorage binds a Store to one session and applies the record codec.
type SessionStorage struct {
	store     Store
	sessionID string
}

var _ Storage = (*SessionStorage)(nil)

// NewSessionStorage returns Storage for sessionID backed by store.
func NewSessionStorage(store Store, sessionID string) *SessionStorage {
	return &SessionStorage{store: store, sessionID: sessionID}
}

// Load reads and decodes the session's cart record.
func (s *SessionStorage) Load(ctx context.Context) ([]LineItem, error) {
	data, err := s.store.Load(ctx, s.sessionID)
	if err != nil {
		return nil, errors.Wrap(err, "load cart")
	}
	if len(data) == 0 {
		return nil, nil
	}
	return Decode(data)
}

// Save encodes and writes the session's cart record.
func (s *SessionStorage) Save(ctx context.Context, items []LineItem) error {
	if err := s.store.Save(ctx, s.sessionID, Encode(items)); err != nil {
		return errors.Wrap(err, "save cart")
	}
	return nil
}
