// Package dialect turns clause trees into Tibero SQL and reads Tibero's
// system catalog back into model descriptors.
//
// A Dialect is immutable once built and safe for concurrent use; the only
// shared mutable state is its compiled reflection query cache. Reflection
// state that lives for one pass is held by an InfoCache owned by the caller.
package dialect

import (
	"go.uber.org/zap"
)

// Options configures a Dialect.
type Options struct {
	// UseANSI renders JOIN ... ON. When false, joins are flattened into a
	// comma separated FROM list with (+) outer join markers.
	UseANSI bool
	// OptimizeLimits adds a FIRST_ROWS hint to ROWNUM wrapped queries.
	OptimizeLimits bool
	// EnableOffsetFetch renders OFFSET ... FETCH FIRST natively. When false
	// LIMIT and OFFSET are emulated with ROWNUM subqueries.
	EnableOffsetFetch bool
	// UseNCharForUnicode maps unicode types to NVARCHAR2 and NCLOB.
	UseNCharForUnicode bool
	// ExcludeTablespaces are skipped by GetTableNames.
	ExcludeTablespaces []string
	// SupportsCharLength renders VARCHAR2(n CHAR).
	SupportsCharLength bool

	MaxIdentifierLength int
	// FLOAT binary precisions reflected as DOUBLE PRECISION and REAL.
	DoublePrecisionBits int
	RealPrecisionBits   int

	// BatchSize bounds the number of names bound to one reflection query.
	BatchSize int
	// QueryCacheSize bounds the compiled reflection query cache.
	QueryCacheSize int

	// ReflectIdentityColumns joins all_tab_identity_cols when reflecting
	// columns. Servers without that view must leave it off.
	ReflectIdentityColumns bool
}

// DefaultOptions returns the options of a Tibero 7 server.
func DefaultOptions() Options {
	return Options{
		UseANSI:             true,
		EnableOffsetFetch:   true,
		ExcludeTablespaces:  []string{"SYSTEM", "SYSSUB"},
		SupportsCharLength:  true,
		MaxIdentifierLength: 128,
		DoublePrecisionBits: 126,
		RealPrecisionBits:   63,
		BatchSize:           500,
		QueryCacheSize:      256,
	}
}

// Dialect is the Tibero dialect.
type Dialect struct {
	opts    Options
	logger  *zap.Logger
	names   *Normalizer
	queries *queryCache
}

// New builds a Dialect. Zero numeric options fall back to DefaultOptions.
func New(opts Options, logger *zap.Logger) (*Dialect, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	def := DefaultOptions()
	if opts.MaxIdentifierLength <= 0 {
		opts.MaxIdentifierLength = def.MaxIdentifierLength
	}
	if opts.DoublePrecisionBits <= 0 {
		opts.DoublePrecisionBits = def.DoublePrecisionBits
	}
	if opts.RealPrecisionBits <= 0 {
		opts.RealPrecisionBits = def.RealPrecisionBits
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = def.BatchSize
	}
	if opts.QueryCacheSize <= 0 {
		opts.QueryCacheSize = def.QueryCacheSize
	}

	qc, err := newQueryCache(opts.QueryCacheSize)
	if err != nil {
		return nil, err
	}
	return &Dialect{
		opts:    opts,
		logger:  logger.Named("tibero"),
		names:   NewNormalizer(opts.MaxIdentifierLength),
		queries: qc,
	}, nil
}

// Options returns the options the dialect was built with.
func (d *Dialect) Options() Options { return d.opts }

// Names returns the dialect's identifier normalizer.
func (d *Dialect) Names() *Normalizer { return d.names }

// Logger returns the dialect logger.
func (d *Dialect) Logger() *zap.Logger { return d.logger }
