package alpharing

import (
	"errors"

	"github.com/loggy01/alpharing/classifier"
	"github.com/loggy01/alpharing/features"
	"github.com/loggy01/alpharing/predictor"
	"github.com/loggy01/alpharing/ring"
	"github.com/loggy01/alpharing/scoring"
	"github.com/loggy01/alpharing/variant"
)

// Error classes surfaced at the package boundary. The first block aliases
// the leaf packages' sentinels so callers can errors.Is against either name.
var (
	// ErrMalformedGraph is returned for RING node/edge files the parser
	// cannot use.
	ErrMalformedGraph = ring.ErrMalformed

	// ErrUnsupportedBondClass is returned when a weight is requested for a
	// bond class the weighting model recognises but does not score.
	ErrUnsupportedBondClass = scoring.ErrUnsupportedClass

	// ErrUndefinedFoldChange is returned when the variant/wild-type weight
	// ratio is not meaningful (zero or negative wild-type weight).
	ErrUndefinedFoldChange = scoring.ErrUndefinedFoldChange

	// ErrMissingFeature is returned when a classifier input cannot be
	// assembled for a substitution.
	ErrMissingFeature = features.ErrMissing

	// ErrClassifierConfig is returned for classifier artifacts that fail
	// schema validation.
	ErrClassifierConfig = classifier.ErrConfiguration

	// ErrInvalidSubstitution is returned for substitution strings or fields
	// that do not describe a valid missense substitution.
	ErrInvalidSubstitution = variant.ErrInvalidSubstitution

	// ErrUnknownProvider is returned when configuration names an external
	// collaborator backend that does not exist.
	ErrUnknownProvider = predictor.ErrUnknownProvider
)

var (
	// ErrSiteNotFound is returned when a substitution's site is absent from
	// an interaction graph.
	ErrSiteNotFound = errors.New("alpharing: substitution site not in graph")

	// ErrSiteMismatch is returned when the residue at the substitution site
	// does not carry the expected amino acid.
	ErrSiteMismatch = errors.New("alpharing: residue mismatch at substitution site")

	// ErrInvalidConfig is returned for invalid configuration values.
	ErrInvalidConfig = errors.New("alpharing: invalid configuration")
)
