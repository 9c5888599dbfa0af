package db

import "database/sql"

// NullString stores an empty string as NULL.
func NullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// NullStringPtr stores a nil or empty pointer as NULL.
func NullStringPtr(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return NullString(*p)
}

// StringPtr returns nil for NULL or empty values.
func StringPtr(ns sql.NullString) *string {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	s := ns.String
	return &s
}
