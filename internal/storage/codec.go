package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"

	"expenses/internal/core"
)

// SchemaVersion is the document version written by Encode.
//
// Version 1 is the legacy layout: a bare JSON array of categories whose
// transactions may lack an id. Version 2 wraps the array in an envelope.
const SchemaVersion = 2

var (
	ErrEmptyDocument      = errors.New("empty document")
	ErrUnsupportedVersion = errors.New("document written by a newer schema version")
)

type envelope struct {
	Version    int             `json:"version"`
	Categories core.Collection `json:"categories"`
}

// Decoded is the result of reading a stored document.
type Decoded struct {
	Collection core.Collection
	// Version is the schema version found in storage, before migration.
	Version int
	// Migrated is true when the in-memory collection differs from what is
	// stored and should be written back.
	Migrated bool
}

// Encode serializes the collection as a current-version document.
func Encode(c core.Collection) ([]byte, error) {
	if c == nil {
		c = core.Collection{}
	}
	data, err := json.Marshal(envelope{Version: SchemaVersion, Categories: c})
	if err != nil {
		return nil, fmt.Errorf("encode collection: %w", err)
	}
	return data, nil
}

// Decode parses any known document version and applies migrations.
func Decode(data []byte) (Decoded, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return Decoded{}, ErrEmptyDocument
	}

	var out Decoded
	switch data[0] {
	case '[':
		var c core.Collection
		if err := json.Unmarshal(data, &c); err != nil {
			return Decoded{}, fmt.Errorf("decode legacy document: %w", err)
		}
		out = Decoded{Collection: c, Version: 1, Migrated: true}
	case '{':
		var env envelope
		if err := json.Unmarshal(data, &env); err != nil {
			return Decoded{}, fmt.Errorf("decode document: %w", err)
		}
		if env.Version > SchemaVersion {
			return Decoded{}, fmt.Errorf("%w: %d", ErrUnsupportedVersion, env.Version)
		}
		out = Decoded{Collection: env.Categories, Version: env.Version, Migrated: env.Version < SchemaVersion}
	default:
		return Decoded{}, fmt.Errorf("decode document: unexpected leading byte %q", data[0])
	}

	if out.Collection == nil {
		out.Collection = core.Collection{}
	}
	if assignMissingIDs(out.Collection) {
		out.Migrated = true
	}
	return out, nil
}

// assignMissingIDs gives every transaction without an id a deterministic
// one, so two loads of the same unsaved legacy document agree on ids.
func assignMissingIDs(c core.Collection) bool {
	changed := false
	for ci := range c {
		if c[ci].Transactions == nil {
			c[ci].Transactions = []core.Transaction{}
		}
		for ti := range c[ci].Transactions {
			tx := &c[ci].Transactions[ti]
			if tx.ID != "" {
				continue
			}
			tx.ID = legacyID(c[ci].Name, ti, *tx)
			changed = true
		}
	}
	return changed
}

func legacyID(category string, index int, tx core.Transaction) string {
	amount, _ := tx.Amount.MarshalJSON()
	key := "tx:" + category + "\x00" + strconv.Itoa(index) + "\x00" + tx.Name + "\x00" + string(amount) + "\x00" + tx.Date.String()
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(key)).String()
}
