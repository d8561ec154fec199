package curriculum

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// Document is the on-disk shape of a curriculum: seeds with nested units,
// plus practice phrases keyed by unit id.
type Document struct {
	Seeds   []Seed   `json:"seeds"`
	Phrases []Phrase `json:"phrases,omitempty"`

	// DecodeIssues lists records that could not be decoded. Validate reports
	// them ahead of its own findings.
	DecodeIssues []LoadIssue `json:"-"`
}

// rawDocument defers decoding of each record so that one malformed record
// does not reject its neighbours.
type rawDocument struct {
	Seeds   []json.RawMessage `json:"seeds"`
	Phrases []json.RawMessage `json:"phrases"`
}

type rawSeed struct {
	Seed
	Units []json.RawMessage `json:"units"`
}

// LoadFile reads a curriculum document from path.
func LoadFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decode(f)
}

// Decode accepts either a {"seeds": [...], "phrases": [...]} object or a
// bare array of seeds. Only a broken document is an error; a record that
// fails to decode is dropped and listed in DecodeIssues.
func Decode(r io.Reader) (*Document, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return &Document{}, nil
	}

	var rd rawDocument
	if raw[0] == '[' {
		if err := json.Unmarshal(raw, &rd.Seeds); err != nil {
			return nil, fmt.Errorf("parse curriculum array: %w", err)
		}
	} else if err := json.Unmarshal(raw, &rd); err != nil {
		return nil, fmt.Errorf("parse curriculum object: %w", err)
	}

	doc := &Document{}
	for _, rs := range rd.Seeds {
		s, issues, ok := decodeSeed(rs)
		doc.DecodeIssues = append(doc.DecodeIssues, issues...)
		if ok {
			doc.Seeds = append(doc.Seeds, s)
		}
	}
	doc.Phrases, doc.DecodeIssues = decodePhrases(rd.Phrases, doc.DecodeIssues)
	return doc, nil
}

func decodeSeed(raw json.RawMessage) (Seed, []LoadIssue, bool) {
	var rs rawSeed
	if err := json.Unmarshal(raw, &rs); err != nil {
		return Seed{}, []LoadIssue{decodeIssue("seed", raw, err)}, false
	}
	s := rs.Seed
	var issues []LoadIssue
	for _, ru := range rs.Units {
		var u Unit
		if err := json.Unmarshal(ru, &u); err != nil {
			issues = append(issues, decodeIssue("unit", ru, err))
			continue
		}
		s.Units = append(s.Units, u)
	}
	return s, issues, true
}

func decodePhrases(raws []json.RawMessage, issues []LoadIssue) ([]Phrase, []LoadIssue) {
	var out []Phrase
	for _, rp := range raws {
		var p Phrase
		if err := json.Unmarshal(rp, &p); err != nil {
			issues = append(issues, decodeIssue("phrase", rp, err))
			continue
		}
		out = append(out, p)
	}
	return out, issues
}

// decodeIssue reports a record that failed to decode, naming it by whatever
// id can still be read from it.
func decodeIssue(record string, raw json.RawMessage, err error) LoadIssue {
	var ids struct {
		ID     any `json:"id"`
		UnitID any `json:"unit_id"`
	}
	_ = json.Unmarshal(raw, &ids)
	id := ids.ID
	if record == "phrase" {
		id = ids.UnitID
	}
	idStr := ""
	if id != nil {
		idStr = fmt.Sprint(id)
	}
	return LoadIssue{Kind: IssueInvalid, Record: record, ID: idStr, Err: err.Error()}
}

// LoadPhrasesFile reads a bare JSON array of phrases. Phrases that fail to
// decode are returned as issues.
func LoadPhrasesFile(path string) ([]Phrase, []LoadIssue, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	var raws []json.RawMessage
	if err := json.Unmarshal(raw, &raws); err != nil {
		return nil, nil, fmt.Errorf("parse phrases: %w", err)
	}
	phrases, issues := decodePhrases(raws, nil)
	return phrases, issues, nil
}

// Write encodes c as an indented Document.
func (c *Curriculum) Write(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(Document{Seeds: c.Seeds, Phrases: c.Phrases})
}
