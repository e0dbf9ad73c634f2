package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strconv"
)

type cellKind int

const (
	cellEmpty cellKind = iota
	cellNumber
	cellText
)

// CellValue is a loosely typed spreadsheet cell: a number, a string or
// empty. The distinction matters because a numeric cell may be a
// spreadsheet date serial, and it has to survive a JSON and database
// round trip as a number to stay recognizable as one.
type CellValue struct {
	kind cellKind
	num  float64
	text string
}

func NumberCell(n float64) CellValue {
	return CellValue{kind: cellNumber, num: n}
}

func TextCell(s string) CellValue {
	return CellValue{kind: cellText, text: s}
}

func (c CellValue) IsZero() bool {
	return c.kind == cellEmpty
}

// Raw returns the underlying value as float64, string or nil.
func (c CellValue) Raw() any {
	switch c.kind {
	case cellNumber:
		return c.num
	case cellText:
		return c.text
	}
	return nil
}

func (c CellValue) String() string {
	switch c.kind {
	case cellNumber:
		return strconv.FormatFloat(c.num, 'f', -1, 64)
	case cellText:
		return c.text
	}
	return ""
}

func (c CellValue) MarshalJSON() ([]byte, error) {
	switch c.kind {
	case cellNumber:
		return []byte(strconv.FormatFloat(c.num, 'f', -1, 64)), nil
	case cellText:
		return json.Marshal(c.text)
	}
	return []byte("null"), nil
}

func (c *CellValue) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch val := v.(type) {
	case nil:
		*c = CellValue{}
	case float64:
		*c = NumberCell(val)
	case string:
		*c = TextCell(val)
	default:
		return fmt.Errorf("expiry value must be a number, a string or null")
	}
	return nil
}

// Value implements driver.Valuer so the cell keeps its storage class in
// SQLite.
func (c CellValue) Value() (driver.Value, error) {
	switch c.kind {
	case cellNumber:
		return c.num, nil
	case cellText:
		return c.text, nil
	}
	return nil, nil
}

// Scan implements sql.Scanner.
func (c *CellValue) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*c = CellValue{}
	case int64:
		*c = NumberCell(float64(v))
	case float64:
		*c = NumberCell(v)
	case string:
		*c = TextCell(v)
	case []byte:
		*c = TextCell(string(v))
	default:
		return fmt.Errorf("cannot scan %T into CellValue", src)
	}
	return nil
}
