package ir

import (
	"fmt"
	"os"

	"github.com/vmihailenco/msgpack/v5"
)

// Current schema version - increment when the artefact format changes.
const artifactSchemaVersion uint16 = 1

const (
	entryFunction uint8 = iota
	entryConstant
)

type artifactEntry struct {
	Kind     uint8
	Function *Function       `msgpack:",omitempty"`
	Constant *StaticConstant `msgpack:",omitempty"`
}

type artifact struct {
	Schema  uint16
	Entries []artifactEntry
}

// Encode serialises statics, in order, into the msgpack artefact consumed by
// the backend.
func Encode(statics []Static) ([]byte, error) {
	art := artifact{Schema: artifactSchemaVersion}
	for _, static := range statics {
		switch s := static.(type) {
		case *Function:
			art.Entries = append(art.Entries, artifactEntry{Kind: entryFunction, Function: s})
		case *StaticConstant:
			art.Entries = append(art.Entries, artifactEntry{Kind: entryConstant, Constant: s})
		default:
			return nil, fmt.Errorf("unknown static %T", static)
		}
	}
	return msgpack.Marshal(&art)
}

// Decode parses an artefact produced by Encode.
func Decode(data []byte) ([]Static, error) {
	var art artifact
	if err := msgpack.Unmarshal(data, &art); err != nil {
		return nil, err
	}
	if art.Schema != artifactSchemaVersion {
		return nil, fmt.Errorf("unsupported artefact schema %d", art.Schema)
	}
	statics := make([]Static, 0, len(art.Entries))
	for _, entry := range art.Entries {
		switch entry.Kind {
		case entryFunction:
			if entry.Function == nil {
				return nil, fmt.Errorf("malformed artefact: function entry without payload")
			}
			statics = append(statics, entry.Function)
		case entryConstant:
			if entry.Constant == nil {
				return nil, fmt.Errorf("malformed artefact: constant entry without payload")
			}
			statics = append(statics, entry.Constant)
		default:
			return nil, fmt.Errorf("malformed artefact: entry kind %d", entry.Kind)
		}
	}
	return statics, nil
}

// WriteFile encodes statics and writes them to path.
func WriteFile(path string, statics []Static) error {
	data, err := Encode(statics)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
