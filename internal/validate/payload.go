// Package validate enforces the claim payload contract on model responses.
package validate

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/ppiankov/claimsift/internal/model"
)

var articleToken = regexp.MustCompile(`^article:[0-9]+$`)

// Payload is one validated model response.
type Payload struct {
	Drugs  []Drug  `json:"drugs"`
	Claims []Claim `json:"claims"`
}

// Drug is one entry of the response's drug catalog.
type Drug struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	Classifications []string `json:"classifications"`
	Claims          []string `json:"claims"`
}

// Reaction is the idiosyncratic reaction marker on a claim.
type Reaction struct {
	Flag        bool     `json:"flag"`
	Descriptors []string `json:"descriptors"`
}

// Claim is one claim as returned by the model.
type Claim struct {
	ID                    string                `json:"id"`
	Type                  model.Classification  `json:"type"`
	Summary               string                `json:"summary"`
	Confidence            model.Confidence      `json:"confidence"`
	Drugs                 []string              `json:"drugs"`
	IdiosyncraticReaction Reaction              `json:"idiosyncratic_reaction"`
	Articles              []string              `json:"articles"`
	Evidence              []model.ClaimEvidence `json:"supporting_evidence"`
}

// DrugByID indexes the catalog.
func (p *Payload) DrugByID() map[string]Drug {
	out := make(map[string]Drug, len(p.Drugs))
	for _, d := range p.Drugs {
		out[d.ID] = d
	}
	return out
}

// ParsePayload decodes and validates a raw model response. It fails on the
// first violation with a *PayloadError.
func ParsePayload(raw []byte) (*Payload, error) {
	body := stripFence(bytes.TrimSpace(raw))
	if len(body) == 0 {
		return nil, &PayloadError{Reason: "empty response"}
	}

	var root any
	dec := json.NewDecoder(bytes.NewReader(body))
	if err := dec.Decode(&root); err != nil {
		return nil, &PayloadError{Reason: fmt.Sprintf("malformed JSON: %v", err)}
	}
	if dec.More() {
		return nil, &PayloadError{Reason: "trailing data after JSON document"}
	}

	obj, ok := root.(map[string]any)
	if !ok {
		return nil, &PayloadError{Reason: "payload must be a JSON object"}
	}

	p := &Payload{}
	drugsRaw, err := array(obj, "drugs", "drugs")
	if err != nil {
		return nil, err
	}
	claimsRaw, err := array(obj, "claims", "claims")
	if err != nil {
		return nil, err
	}

	for i, v := range drugsRaw {
		d, err := parseDrug(v, fmt.Sprintf("drugs[%d]", i))
		if err != nil {
			return nil, err
		}
		p.Drugs = append(p.Drugs, d)
	}
	for i, v := range claimsRaw {
		c, err := parseClaim(v, fmt.Sprintf("claims[%d]", i))
		if err != nil {
			return nil, err
		}
		p.Claims = append(p.Claims, c)
	}

	if err := crossCheck(p); err != nil {
		return nil, err
	}
	return p, nil
}

func parseDrug(v any, path string) (Drug, error) {
	obj, ok := v.(map[string]any)
	if !ok {
		return Drug{}, &PayloadError{Field: path, Reason: "must be an object"}
	}
	var (
		d   Drug
		err error
	)
	if d.ID, err = str(obj, "id", path, true); err != nil {
		return d, err
	}
	if d.Name, err = str(obj, "name", path, true); err != nil {
		return d, withDrug(err, d.ID)
	}
	if d.Classifications, err = stringList(obj, "classifications", path, false); err != nil {
		return d, withDrug(err, d.ID)
	}
	if d.Claims, err = stringList(obj, "claims", path, false); err != nil {
		return d, withDrug(err, d.ID)
	}
	return d, nil
}

func parseClaim(v any, path string) (Claim, error) {
	obj, ok := v.(map[string]any)
	if !ok {
		return Claim{}, &PayloadError{Field: path, Reason: "must be an object"}
	}
	var (
		c   Claim
		err error
	)
	if c.ID, err = str(obj, "id", path, true); err != nil {
		return c, err
	}

	typ, err := str(obj, "type", path, true)
	if err != nil {
		return c, withClaim(err, c.ID)
	}
	c.Type = model.Classification(strings.ToLower(typ))
	if !c.Type.Valid() {
		return c, &PayloadError{Field: path + ".type", ClaimID: c.ID, Reason: fmt.Sprintf("unknown classification %q", typ)}
	}

	if c.Summary, err = str(obj, "summary", path, true); err != nil {
		return c, withClaim(err, c.ID)
	}

	conf, err := str(obj, "confidence", path, true)
	if err != nil {
		return c, withClaim(err, c.ID)
	}
	c.Confidence = model.Confidence(strings.ToLower(conf))
	if c.Confidence.Rank() < 0 {
		return c, &PayloadError{Field: path + ".confidence", ClaimID: c.ID, Reason: fmt.Sprintf("unknown confidence %q", conf)}
	}

	if c.Drugs, err = stringList(obj, "drugs", path, true); err != nil {
		return c, withClaim(err, c.ID)
	}

	if c.IdiosyncraticReaction, err = parseReaction(obj, path); err != nil {
		return c, withClaim(err, c.ID)
	}

	if c.Articles, err = stringList(obj, "articles", path, true); err != nil {
		return c, withClaim(err, c.ID)
	}
	for i, a := range c.Articles {
		if !articleToken.MatchString(a) {
			return c, &PayloadError{Field: fmt.Sprintf("%s.articles[%d]", path, i), ClaimID: c.ID, Reason: fmt.Sprintf("malformed article id %q", a)}
		}
	}

	evidence, err := array(obj, "supporting_evidence", path+".supporting_evidence")
	if err != nil {
		return c, withClaim(err, c.ID)
	}
	for i, ev := range evidence {
		e, err := parseEvidence(ev, fmt.Sprintf("%s.supporting_evidence[%d]", path, i))
		if err != nil {
			return c, withClaim(err, c.ID)
		}
		c.Evidence = append(c.Evidence, e)
	}
	return c, nil
}

func parseReaction(obj map[string]any, path string) (Reaction, error) {
	field := path + ".idiosyncratic_reaction"
	raw, ok := obj["idiosyncratic_reaction"]
	if !ok {
		return Reaction{}, &PayloadError{Field: field, Reason: "required field missing"}
	}
	ro, ok := raw.(map[string]any)
	if !ok {
		return Reaction{}, &PayloadError{Field: field, Reason: "must be an object"}
	}
	flagRaw, ok := ro["flag"]
	if !ok {
		return Reaction{}, &PayloadError{Field: field + ".flag", Reason: "required field missing"}
	}
	flag, ok := flagRaw.(bool)
	if !ok {
		return Reaction{}, &PayloadError{Field: field + ".flag", Reason: "must be a boolean"}
	}
	descriptors, err := stringList(ro, "descriptors", field, false)
	if err != nil {
		return Reaction{}, err
	}
	return Reaction{Flag: flag, Descriptors: descriptors}, nil
}

func parseEvidence(v any, path string) (model.ClaimEvidence, error) {
	obj, ok := v.(map[string]any)
	if !ok {
		return model.ClaimEvidence{}, &PayloadError{Field: path, Reason: "must be an object"}
	}
	var (
		e   model.ClaimEvidence
		err error
	)
	if e.SnippetID, err = str(obj, "snippet_id", path, true); err != nil {
		return e, err
	}
	if e.PMID, err = str(obj, "pmid", path, true); err != nil {
		return e, err
	}
	if e.ArticleTitle, err = str(obj, "article_title", path, false); err != nil {
		return e, err
	}
	if e.KeyPoints, err = stringList(obj, "key_points", path, true); err != nil {
		return e, err
	}
	if v, ok := obj["notes"]; ok && v != nil {
		if e.Notes, err = str(obj, "notes", path, false); err != nil {
			return e, err
		}
	}
	return e, nil
}

// crossCheck verifies references between the catalog and the claims.
func crossCheck(p *Payload) error {
	drugs := make(map[string]Drug, len(p.Drugs))
	for i, d := range p.Drugs {
		if _, dup := drugs[d.ID]; dup {
			return &PayloadError{Field: fmt.Sprintf("drugs[%d].id", i), DrugID: d.ID, Reason: "duplicate drug id"}
		}
		drugs[d.ID] = d
	}

	claimIDs := make(map[string]bool, len(p.Claims))
	for i, c := range p.Claims {
		if claimIDs[c.ID] {
			return &PayloadError{Field: fmt.Sprintf("claims[%d].id", i), ClaimID: c.ID, Reason: "duplicate claim id"}
		}
		claimIDs[c.ID] = true
	}

	for i, c := range p.Claims {
		for j, id := range c.Drugs {
			d, ok := drugs[id]
			if !ok {
				return &PayloadError{
					Field:   fmt.Sprintf("claims[%d].drugs[%d]", i, j),
					ClaimID: c.ID,
					DrugID:  id,
					Reason:  "drug id not declared in catalog",
					kind:    ErrUnknownDrugID,
				}
			}
			if !slices.Contains(d.Claims, c.ID) {
				return &PayloadError{
					Field:   fmt.Sprintf("claims[%d].drugs[%d]", i, j),
					ClaimID: c.ID,
					DrugID:  id,
					Reason:  "catalog entry does not list this claim",
				}
			}
		}
	}

	for i, d := range p.Drugs {
		for j, id := range d.Claims {
			if !claimIDs[id] {
				return &PayloadError{
					Field:   fmt.Sprintf("drugs[%d].claims[%d]", i, j),
					ClaimID: id,
					DrugID:  d.ID,
					Reason:  "claim id not present in claims",
				}
			}
		}
	}
	return nil
}

func str(obj map[string]any, key, path string, nonEmpty bool) (string, error) {
	field := path + "." + key
	v, ok := obj[key]
	if !ok {
		return "", &PayloadError{Field: field, Reason: "required field missing"}
	}
	s, ok := v.(string)
	if !ok {
		return "", &PayloadError{Field: field, Reason: "must be a string"}
	}
	s = strings.TrimSpace(s)
	if nonEmpty && s == "" {
		return "", &PayloadError{Field: field, Reason: "must not be empty"}
	}
	return s, nil
}

func array(obj map[string]any, key, field string) ([]any, error) {
	v, ok := obj[key]
	if !ok {
		return nil, &PayloadError{Field: field, Reason: "required field missing"}
	}
	arr, ok := v.([]any)
	if !ok {
		return nil, &PayloadError{Field: field, Reason: "must be an array"}
	}
	return arr, nil
}

// stringList reads an array of strings.
func stringList(obj map[string]any, key, path string, nonEmpty bool) ([]string, error) {
	field := path + "." + key
	arr, err := array(obj, key, field)
	if err != nil {
		return nil, err
	}
	if nonEmpty && len(arr) == 0 {
		return nil, &PayloadError{Field: field, Reason: "must not be empty"}
	}
	out := make([]string, 0, len(arr))
	for i, v := range arr {
		s, ok := v.(string)
		if !ok {
			return nil, &PayloadError{Field: fmt.Sprintf("%s[%d]", field, i), Reason: "must be a string"}
		}
		out = append(out, strings.TrimSpace(s))
	}
	return out, nil
}

func withClaim(err error, id string) error {
	var pe *PayloadError
	if errors.As(err, &pe) && pe.ClaimID == "" {
		pe.ClaimID = id
	}
	return err
}

func withDrug(err error, id string) error {
	var pe *PayloadError
	if errors.As(err, &pe) && pe.DrugID == "" {
		pe.DrugID = id
	}
	return err
}

// stripFence removes a surrounding markdown code fence.
func stripFence(body []byte) []byte {
	if !bytes.HasPrefix(body, []byte("```")) {
		return body
	}
	body = body[3:]
	if nl := bytes.IndexByte(body, '\n'); nl >= 0 {
		body = body[nl+1:]
	}
	body = bytes.TrimSpace(body)
	body = bytes.TrimSuffix(body, []byte("```"))
	return bytes.TrimSpace(body)
}
