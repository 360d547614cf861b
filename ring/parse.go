package ring

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

// Load reads a RING node/edge file pair and assembles the graph.
func Load(nodesPath, edgesPath string) (*Graph, error) {
	nf, err := os.Open(nodesPath)
	if err != nil {
		return nil, fmt.Errorf("opening nodes file: %w", err)
	}
	defer nf.Close()

	residues, err := ParseNodes(nf)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", nodesPath, err)
	}

	ef, err := os.Open(edgesPath)
	if err != nil {
		return nil, fmt.Errorf("opening edges file: %w", err)
	}
	defer ef.Close()

	bonds, err := ParseEdges(ef)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", edgesPath, err)
	}

	return NewGraph(residues, bonds)
}

// ParseNodes reads a RING *_ringNodes file: tab-separated, header-addressed,
// one residue per row keyed by the NodeId column.
func ParseNodes(r io.Reader) ([]Residue, error) {
	rows, header, err := readTSV(r)
	if err != nil {
		return nil, err
	}

	idCol, ok := header["NodeId"]
	if !ok {
		return nil, fmt.Errorf("%w: nodes file has no NodeId column", ErrMalformed)
	}
	degreeCol, hasDegree := header["Degree"]
	bfactorCol, hasBfactor := header["Bfactor_CA"]

	residues := make([]Residue, 0, len(rows))
	for _, row := range rows {
		id, insertion, name, err := parseNodeTag(field(row.fields, idCol))
		if err != nil {
			return nil, fmt.Errorf("%w (line %d)", err, row.line)
		}

		res := newResidue(id, name)
		res.Insertion = insertion
		if hasDegree {
			if s := field(row.fields, degreeCol); s != "" {
				d, err := strconv.Atoi(s)
				if err != nil {
					return nil, fmt.Errorf("%w: bad degree %q (line %d)", ErrMalformed, s, row.line)
				}
				res.Degree = d
			}
		}
		if hasBfactor {
			v, err := parseFloat(field(row.fields, bfactorCol))
			if err != nil {
				return nil, fmt.Errorf("%w: bad Bfactor_CA (line %d): %v", ErrMalformed, row.line, err)
			}
			res.Confidence = v
		}
		residues = append(residues, res)
	}
	return residues, nil
}

// ParseEdges reads a RING *_ringEdges file. The Interaction column carries
// the bond class and an optional localisation qualifier as CLASS:SUBTYPE.
func ParseEdges(r io.Reader) ([]Bond, error) {
	rows, header, err := readTSV(r)
	if err != nil {
		return nil, err
	}

	for _, name := range []string{"NodeId1", "Interaction", "NodeId2"} {
		if _, ok := header[name]; !ok {
			return nil, fmt.Errorf("%w: edges file has no %s column", ErrMalformed, name)
		}
	}
	id1Col := header["NodeId1"]
	intCol := header["Interaction"]
	id2Col := header["NodeId2"]
	distCol, hasDist := header["Distance"]
	angleCol, hasAngle := header["Angle"]
	energyCol, hasEnergy := header["Energy"]
	atom1Col, hasAtom1 := header["Atom1"]
	atom2Col, hasAtom2 := header["Atom2"]

	bonds := make([]Bond, 0, len(rows))
	for _, row := range rows {
		id1, _, _, err := parseNodeTag(field(row.fields, id1Col))
		if err != nil {
			return nil, fmt.Errorf("%w (line %d)", err, row.line)
		}
		id2, _, _, err := parseNodeTag(field(row.fields, id2Col))
		if err != nil {
			return nil, fmt.Errorf("%w (line %d)", err, row.line)
		}

		class, subtype := splitInteraction(field(row.fields, intCol))
		if !class.Known() {
			return nil, fmt.Errorf("%w: bond class %q outside vocabulary (line %d)", ErrMalformed, string(class), row.line)
		}

		b := Bond{
			Node1:    id1,
			Node2:    id2,
			Class:    class,
			Subtype:  subtype,
			Distance: math.NaN(),
			Angle:    math.NaN(),
			Energy:   math.NaN(),
			Weight:   math.NaN(),
		}
		if hasDist {
			if b.Distance, err = parseFloat(field(row.fields, distCol)); err != nil {
				return nil, fmt.Errorf("%w: bad distance (line %d): %v", ErrMalformed, row.line, err)
			}
		}
		if hasAngle {
			if b.Angle, err = parseFloat(field(row.fields, angleCol)); err != nil {
				return nil, fmt.Errorf("%w: bad angle (line %d): %v", ErrMalformed, row.line, err)
			}
		}
		if hasEnergy {
			if b.Energy, err = parseFloat(field(row.fields, energyCol)); err != nil {
				return nil, fmt.Errorf("%w: bad energy (line %d): %v", ErrMalformed, row.line, err)
			}
		}
		if hasAtom1 {
			b.Atom1 = field(row.fields, atom1Col)
		}
		if hasAtom2 {
			b.Atom2 = field(row.fields, atom2Col)
		}
		bonds = append(bonds, b)
	}
	return bonds, nil
}

// tsvRow pairs split fields with the 1-based source line for error reporting.
type tsvRow struct {
	line   int
	fields []string
}

// readTSV splits a tab-separated file into a header index and data rows.
// Blank lines are skipped.
func readTSV(r io.Reader) ([]tsvRow, map[string]int, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var rows []tsvRow
	header := make(map[string]int)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimRight(sc.Text(), "\r\n")
		if strings.TrimSpace(text) == "" {
			continue
		}
		fields := strings.Split(text, "\t")
		if len(header) == 0 {
			for i, name := range fields {
				header[strings.TrimSpace(name)] = i
			}
			continue
		}
		rows = append(rows, tsvRow{line: line, fields: fields})
	}
	if err := sc.Err(); err != nil {
		return nil, nil, fmt.Errorf("reading file: %w", err)
	}
	if len(header) == 0 {
		return nil, nil, fmt.Errorf("%w: empty file", ErrMalformed)
	}
	return rows, header, nil
}

// field returns the column value, tolerating short rows.
func field(fields []string, i int) string {
	if i < 0 || i >= len(fields) {
		return ""
	}
	return strings.TrimSpace(fields[i])
}

// parseFloat reads a numeric cell; blank and NA cells become NaN.
func parseFloat(s string) (float64, error) {
	if s == "" || s == "NA" {
		return math.NaN(), nil
	}
	return strconv.ParseFloat(s, 64)
}

// parseNodeTag splits a RING node tag Chain:Position:Insertion:Residue,
// e.g. "A:229:_:TYR".
func parseNodeTag(s string) (NodeID, string, string, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 4 {
		return NodeID{}, "", "", fmt.Errorf("%w: bad node tag %q", ErrMalformed, s)
	}
	pos, err := strconv.Atoi(parts[1])
	if err != nil {
		return NodeID{}, "", "", fmt.Errorf("%w: bad node position in %q", ErrMalformed, s)
	}
	insertion := parts[2]
	if insertion == "" {
		insertion = "_"
	}
	return NodeID{Chain: parts[0], Position: pos}, insertion, parts[3], nil
}

// splitInteraction separates a RING interaction tag into class and subtype.
func splitInteraction(s string) (BondClass, string) {
	class, subtype, found := strings.Cut(s, ":")
	if !found {
		return BondClass(class), ""
	}
	return BondClass(class), subtype
}
