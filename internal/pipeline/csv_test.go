package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseCSV(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected [][]string
	}{
		{
			name:     "empty input",
			input:    "",
			expected: nil,
		},
		{
			name:     "whitespace only",
			input:    " \r\n\t\n ",
			expected: nil,
		},
		{
			name:  "lf line endings",
			input: "a,b\nc,d",
			expected: [][]string{
				{"a", "b"},
				{"c", "d"},
			},
		},
		{
			name:  "crlf line endings",
			input: "a,b\r\nc,d\r\n",
			expected: [][]string{
				{"a", "b"},
				{"c", "d"},
			},
		},
		{
			name:  "cells are trimmed",
			input: "  emp1 , 100 ,XAF , 2024-01-01,  September salary  ",
			expected: [][]string{
				{"emp1", "100", "XAF", "2024-01-01", "September salary"},
			},
		},
		{
			name:  "quoted comma is a separator",
			input: `emp1,100,XAF,2024-01-01,"Bonus, Q3"`,
			expected: [][]string{
				{"emp1", "100", "XAF", "2024-01-01", `"Bonus`, `Q3"`},
			},
		},
		{
			name:  "trailing empty cell kept",
			input: "emp2,200,XAF,2024-01-02,",
			expected: [][]string{
				{"emp2", "200", "XAF", "2024-01-02", ""},
			},
		},
		{
			name:  "interior blank line",
			input: "a\n\nb",
			expected: [][]string{
				{"a"},
				{""},
				{"b"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseCSV(tt.input))
		})
	}
}

func TestParseCSV_TwoRowsWithEmptyNote(t *testing.T) {
	records := ParseCSV("emp1,100,XAF,2024-01-01,Note\nemp2,200,XAF,2024-01-02,")

	assert.Len(t, records, 2)
	assert.Equal(t, "Note", records[0][4])
	assert.Equal(t, "", records[1][4])
}
