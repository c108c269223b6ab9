// Package record defines the normalized output schema shared by the calendar
// and mailbox normalizers.
//
// Every record is a value type carrying the name of the archive it was read
// from so aggregated output can be traced back to its upload. Records are
// built once by a normalizer and never mutated afterwards.
package record
