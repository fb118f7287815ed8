package parser

import "github.com/user/torque_accuracy_go/internal/table"

// UnnamedColumnPrefix names header cells that are blank, e.g. "Unnamed: 3".
const UnnamedColumnPrefix = "Unnamed: "

// ParsedLog is a dynamometer log loaded from one or more files.
// Table columns keep the raw header names; signal roles are assigned later.
type ParsedLog struct {
	Table       *table.Table
	Sources     []string
	ParseErrors []string // To collect any non-fatal errors during parsing
}

// NewParsedLog initialises an empty ParsedLog.
func NewParsedLog() *ParsedLog {
	return &ParsedLog{
		Sources:     make([]string, 0),
		ParseErrors: make([]string, 0),
	}
}

// Columns returns the raw column headers in file order.
func (p *ParsedLog) Columns() []string {
	if p == nil || p.Table == nil {
		return nil
	}
	return p.Table.Names()
}
