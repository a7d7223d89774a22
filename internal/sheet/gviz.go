// Package sheet reads the class spreadsheet through the public Google
// Sheets visualization ("gviz") endpoint and maps its loosely-typed rows
// onto typed records.
package sheet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"schoolboard/internal/fetch"
)

// DefaultBaseURL is the Google Docs host serving gviz queries.
const DefaultBaseURL = "https://docs.google.com"

// ErrBadPayload is returned when a gviz response cannot be decoded.
var ErrBadPayload = errors.New("sheet: malformed gviz payload")

var setResponsePattern = regexp.MustCompile(`setResponse\(([\s\S]+)\)`)

// Row is one spreadsheet row keyed by column label. Empty cells are nil.
type Row map[string]any

// Text renders the cell at col as display text. Whole numbers are printed
// without a decimal part.
func (r Row) Text(col string) string {
	switch v := r[col].(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprint(v)
	}
}

// Blank reports whether the cell at col is missing or whitespace only.
func (r Row) Blank(col string) bool {
	return strings.TrimSpace(r.Text(col)) == ""
}

// Table is a decoded sheet.
type Table struct {
	Columns []string
	Rows    []Row
}

// HasColumn reports whether a column labelled name exists.
func (t Table) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

type gvizResponse struct {
	Status string `json:"status"`
	Errors []struct {
		Reason          string `json:"reason"`
		Message         string `json:"message"`
		DetailedMessage string `json:"detailed_message"`
	} `json:"errors"`
	Table *struct {
		Cols []struct {
			ID    string `json:"id"`
			Label string `json:"label"`
			Type  string `json:"type"`
		} `json:"cols"`
		Rows []struct {
			C []*struct {
				V any    `json:"v"`
				F string `json:"f"`
			} `json:"c"`
		} `json:"rows"`
	} `json:"table"`
}

// DecodeTable strips the JavaScript wrapper of a gviz response and decodes
// the table. Unlabelled columns are named col<i>.
func DecodeTable(body []byte) (Table, error) {
	m := setResponsePattern.FindSubmatch(body)
	if m == nil {
		return Table{}, fmt.Errorf("%w: no setResponse wrapper", ErrBadPayload)
	}

	var resp gvizResponse
	if err := json.Unmarshal(m[1], &resp); err != nil {
		return Table{}, fmt.Errorf("%w: %w", ErrBadPayload, err)
	}
	if resp.Status == "error" {
		msgs := make([]string, 0, len(resp.Errors))
		for _, e := range resp.Errors {
			msgs = append(msgs, e.Reason+": "+e.DetailedMessage)
		}
		return Table{}, fmt.Errorf("%w: query error: %s", ErrBadPayload, strings.Join(msgs, "; "))
	}
	if resp.Table == nil {
		return Table{}, fmt.Errorf("%w: missing table", ErrBadPayload)
	}

	cols := make([]string, len(resp.Table.Cols))
	for i, c := range resp.Table.Cols {
		label := strings.TrimSpace(c.Label)
		if label == "" {
			label = "col" + strconv.Itoa(i)
		}
		cols[i] = label
	}

	rows := make([]Row, 0, len(resp.Table.Rows))
	for _, r := range resp.Table.Rows {
		row := make(Row, len(cols))
		for i, cell := range r.C {
			if i >= len(cols) {
				break
			}
			if cell == nil || cell.V == nil {
				row[cols[i]] = nil
				continue
			}
			row[cols[i]] = cell.V
		}
		rows = append(rows, row)
	}

	return Table{Columns: cols, Rows: rows}, nil
}

// Client fetches sheets of one spreadsheet.
type Client struct {
	fetcher *fetch.Fetcher
	baseURL string
	sheetID string
}

// NewClient returns a Client for the spreadsheet sheetID.
func NewClient(f *fetch.Fetcher, sheetID string) *Client {
	return &Client{fetcher: f, baseURL: DefaultBaseURL, sheetID: sheetID}
}

// WithBaseURL points the client at another host (tests).
func (c *Client) WithBaseURL(base string) *Client {
	c.baseURL = strings.TrimRight(base, "/")
	return c
}

// URL returns the gviz query URL for the named sheet.
func (c *Client) URL(sheetName string) string {
	return fmt.Sprintf("%s/spreadsheets/d/%s/gviz/tq?sheet=%s&tqx=out:json",
		c.baseURL, url.PathEscape(c.sheetID), url.QueryEscape(sheetName))
}

// FetchTable downloads and decodes the named sheet.
func (c *Client) FetchTable(ctx context.Context, sheetName string) (Table, error) {
	if c.sheetID == "" {
		return Table{}, errors.New("sheet: spreadsheet id is empty")
	}
	res, err := c.fetcher.Fetch(ctx, fetch.Source{ID: "sheet:" + sheetName, URL: c.URL(sheetName)})
	if err != nil {
		return Table{}, err
	}
	t, err := DecodeTable(res.Body)
	if err != nil {
		return Table{}, fmt.Errorf("sheet %q: %w", sheetName, err)
	}
	return t, nil
}
