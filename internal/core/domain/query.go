package domain

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Row is one result row. Values are kept in column order so the JSON
// object reads the way the SELECT list was written.
type Row struct {
	Columns []string
	Values  []any
}

// Get returns the value of the named column.
func (r Row) Get(column string) (any, bool) {
	for i, c := range r.Columns {
		if c == column {
			return r.Values[i], true
		}
	}
	return nil, false
}

// MarshalJSON writes the row as an object. A repeated column name gets a
// numeric suffix (a, a_2, a_3) so no value is lost to a duplicate key.
func (r Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, c := range UniqueKeys(r.Columns) {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(c)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		v, err := json.Marshal(r.Values[i])
		if err != nil {
			return nil, err
		}
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UniqueKeys renames repeated column names. The first occurrence keeps its
// name; later ones take the lowest free suffix from _2 upwards.
func UniqueKeys(columns []string) []string {
	taken := make(map[string]bool, len(columns))
	for _, c := range columns {
		taken[c] = true
	}
	seen := make(map[string]bool, len(columns))
	out := make([]string, len(columns))
	for i, c := range columns {
		if !seen[c] {
			seen[c] = true
			out[i] = c
			continue
		}
		for n := 2; ; n++ {
			k := c + "_" + strconv.Itoa(n)
			if !taken[k] {
				taken[k] = true
				out[i] = k
				break
			}
		}
	}
	return out
}

// QueryResult is what query_osm_postgres returns. Every value is already
// text-safe: geometries are EWKT, raw bytes are base64. TotalRows counts
// what the statement produced before any row cap.
type QueryResult struct {
	Columns   []string `json:"columns"`
	Rows      []Row    `json:"rows"`
	RowCount  int      `json:"row_count"`
	TotalRows int      `json:"total_rows"`
	Truncated bool     `json:"truncated,omitempty"`
	Command   string   `json:"command,omitempty"`
}

type TableSummary struct {
	Schema string `json:"schema"`
	Name   string `json:"name"`
	Type   string `json:"type"`
}

type ColumnInfo struct {
	Name     string `json:"name"`
	DataType string `json:"data_type"`
	Nullable bool   `json:"nullable"`
}

type IndexInfo struct {
	Name       string `json:"name"`
	Definition string `json:"definition"`
}

type TableInfo struct {
	Name            string       `json:"name"`
	Columns         []ColumnInfo `json:"columns"`
	Indexes         []IndexInfo  `json:"indexes"`
	ApproximateRows int64        `json:"approximate_rows"`
}
