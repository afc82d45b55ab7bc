// Enums shared by command line and conversion code live here so they could be
// used for flag parsing without pulling in conversion machinery.
package common

//go:generate go tool go-enum --marshal --names

// Specification of requested output type.
// ENUM(vanilla, bigbook)
type OutputFmt int

// Ext returns extension of the primary artifact for the format. Vanilla books
// and unknown formats have none.
func (o OutputFmt) Ext() string {
	if o == OutputFmtBigbook {
		return ".dat"
	}
	return ""
}
