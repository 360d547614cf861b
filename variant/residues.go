package variant

import "strings"

// threeToOne maps the 20 standard amino acids from three-letter to
// one-letter codes.
var threeToOne = map[string]byte{
	"ALA": 'A',
	"ARG": 'R',
	"ASN": 'N',
	"ASP": 'D',
	"CYS": 'C',
	"GLU": 'E',
	"GLN": 'Q',
	"GLY": 'G',
	"HIS": 'H',
	"ILE": 'I',
	"LEU": 'L',
	"LYS": 'K',
	"MET": 'M',
	"PHE": 'F',
	"PRO": 'P',
	"SER": 'S',
	"THR": 'T',
	"TRP": 'W',
	"TYR": 'Y',
	"VAL": 'V',
}

var oneToThree = func() map[byte]string {
	m := make(map[byte]string, len(threeToOne))
	for three, one := range threeToOne {
		m[one] = three
	}
	return m
}()

// OneLetter converts a three-letter residue name (any case) to its
// one-letter code.
func OneLetter(name string) (byte, bool) {
	c, ok := threeToOne[strings.ToUpper(name)]
	return c, ok
}

// ThreeLetter converts a one-letter residue code to its upper-case
// three-letter name.
func ThreeLetter(code byte) (string, bool) {
	name, ok := oneToThree[code]
	return name, ok
}

// ValidResidue reports whether code names one of the 20 standard amino acids.
func ValidResidue(code byte) bool {
	_, ok := oneToThree[code]
	return ok
}
