package shareset

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Davincible/polysecret/internal/validation"
	"github.com/fxamacker/cbor/v2"
)

// Format is the on-disk encoding of a share-set.
type Format string

const (
	FormatJSON Format = "json"
	FormatCBOR Format = "cbor"
)

// FormatFromPath picks the encoding from the file extension. Anything that is
// not .cbor is treated as JSON.
func FormatFromPath(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".cbor") {
		return FormatCBOR
	}
	return FormatJSON
}

func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(s)) {
	case FormatJSON:
		return FormatJSON, nil
	case FormatCBOR:
		return FormatCBOR, nil
	}
	return "", fmt.Errorf("unknown share-set format %q", s)
}

// jsonKeys is the header record: {"keys": {"n": 4, "k": 3}}.
type jsonKeys struct {
	N int `json:"n"`
	K int `json:"k"`
}

// jsonShare is a single entry: {"1": {"base": "10", "value": "4"}}. The base
// may also be written as a bare number.
type jsonShare struct {
	Base  json.RawMessage `json:"base"`
	Value string          `json:"value"`
}

type cborShare struct {
	Index int    `cbor:"index"`
	Base  int    `cbor:"base"`
	Value string `cbor:"value"`
}

type cborSet struct {
	N      int         `cbor:"n"`
	K      int         `cbor:"k"`
	Shares []cborShare `cbor:"shares"`
}

// Load reads and parses a share-set file, naming it after the file.
func Load(path string) (*ShareSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	set, err := Parse(data, FormatFromPath(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	set.Name = filepath.Base(path)
	return set, nil
}

func Parse(data []byte, format Format) (*ShareSet, error) {
	switch format {
	case FormatJSON:
		return parseJSON(data)
	case FormatCBOR:
		return parseCBOR(data)
	}
	return nil, fmt.Errorf("unknown share-set format %q", format)
}

func parseJSON(data []byte) (*ShareSet, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	keysRaw, ok := raw["keys"]
	if !ok {
		return nil, fmt.Errorf("%w: missing \"keys\" object", ErrMalformed)
	}
	var keys jsonKeys
	if err := json.Unmarshal(keysRaw, &keys); err != nil {
		return nil, fmt.Errorf("%w: failed to parse \"keys\": %v", ErrMalformed, err)
	}

	shares := make([]Share, 0, len(raw)-1)
	for key, entry := range raw {
		if key == "keys" {
			continue
		}

		idx, err := validation.ParseShareIndex(key)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}

		var js jsonShare
		if err := json.Unmarshal(entry, &js); err != nil {
			return nil, fmt.Errorf("%w: share %d: %v", ErrMalformed, idx, err)
		}
		base, err := parseJSONBase(js.Base)
		if err != nil {
			return nil, fmt.Errorf("share %d: %w", idx, err)
		}

		shares = append(shares, Share{Index: idx, Base: base, Value: js.Value})
	}

	return New("", keys.N, keys.K, shares)
}

func parseJSONBase(raw json.RawMessage) (int, error) {
	if len(raw) == 0 {
		return 0, fmt.Errorf("%w: missing base", ErrMalformed)
	}

	var text string
	if err := json.Unmarshal(raw, &text); err != nil {
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return 0, fmt.Errorf("%w: base must be a string or number", ErrMalformed)
		}
		text = n.String()
	}
	return validation.ParseBase(text)
}

func parseCBOR(data []byte) (*ShareSet, error) {
	var cs cborSet
	if err := cbor.Unmarshal(data, &cs); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	shares := make([]Share, len(cs.Shares))
	for i, s := range cs.Shares {
		shares[i] = Share{Index: s.Index, Base: s.Base, Value: s.Value}
	}
	return New("", cs.N, cs.K, shares)
}

// Marshal encodes the share-set. JSON output lists "keys" first and the shares
// in ascending index order.
func (s *ShareSet) Marshal(format Format) ([]byte, error) {
	switch format {
	case FormatJSON:
		return s.marshalJSON()
	case FormatCBOR:
		cs := cborSet{N: s.N, K: s.K, Shares: make([]cborShare, len(s.Shares))}
		for i, share := range s.Shares {
			cs.Shares[i] = cborShare{Index: share.Index, Base: share.Base, Value: share.Value}
		}
		return cbor.Marshal(cs)
	}
	return nil, fmt.Errorf("unknown share-set format %q", format)
}

func (s *ShareSet) marshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	keys, err := json.Marshal(jsonKeys{N: s.N, K: s.K})
	if err != nil {
		return nil, err
	}
	buf.WriteString(`"keys":`)
	buf.Write(keys)

	for _, share := range s.Shares {
		entry, err := json.Marshal(struct {
			Base  string `json:"base"`
			Value string `json:"value"`
		}{strconv.Itoa(share.Base), share.Value})
		if err != nil {
			return nil, err
		}
		fmt.Fprintf(&buf, `,"%d":`, share.Index)
		buf.Write(entry)
	}
	buf.WriteByte('}')

	var out bytes.Buffer
	if err := json.Indent(&out, buf.Bytes(), "", "    "); err != nil {
		return nil, err
	}
	out.WriteByte('\n')
	return out.Bytes(), nil
}
