package domain

import "strings"

// ClassLabel is a normalized species identifier, as trained into the model
// and recorded in the class registry.
type ClassLabel string

// NormalizeLabel lower-cases and trims a raw species name.
func NormalizeLabel(raw string) ClassLabel {
	return ClassLabel(strings.ToLower(strings.TrimSpace(raw)))
}

func (l ClassLabel) String() string {
	return string(l)
}

func (l ClassLabel) Empty() bool {
	return string(l) == ""
}

// Folder derives the dataset-store folder for a label: its first
// whitespace-delimited token ("hibiscus leaf" -> "hibiscus").
//
// Multi-word labels sharing a first token collide on the same folder.
// That matches the historical on-disk layout, so it stays; distinct labels
// needing distinct folders must differ in their first token.
func (l ClassLabel) Folder() string {
	fields := strings.Fields(string(l))
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
