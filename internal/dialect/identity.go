package dialect

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/faucetdb/tibero/internal/model"
)

// parseIdentityOptions reads the identity column description built by the
// column query: the generation type followed by "KEY: value" pairs, e.g.
//
//	ALWAYS, START WITH: 1, INCREMENT BY: 1, MAX_VALUE: 9999, CYCLE_FLAG: N
func (in *Inspector) parseIdentityOptions(options, defaultOnNull string) *model.Identity {
	parts := strings.Split(options, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	id := &model.Identity{
		Always: parts[0] == "ALWAYS",
		OnNull: defaultOnNull == "YES",
	}

	for _, part := range parts[1:] {
		option, value, ok := strings.Cut(part, ":")
		if !ok {
			in.logger.Warn("skipping identity option without a value", zap.String("option", part))
			continue
		}
		value = strings.TrimSpace(value)

		switch {
		case strings.Contains(option, "START WITH"):
			id.Start = in.identityNumber(option, value)
		case strings.Contains(option, "INCREMENT BY"):
			id.Increment = in.identityNumber(option, value)
		case strings.Contains(option, "MAX_VALUE"):
			id.MaxValue = in.identityNumber(option, value)
		case strings.Contains(option, "MIN_VALUE"):
			id.MinValue = in.identityNumber(option, value)
		case strings.Contains(option, "CYCLE_FLAG"):
			cycle := value == "Y"
			id.Cycle = &cycle
		case strings.Contains(option, "CACHE_SIZE"):
			id.Cache = in.identityInt(option, value)
		case strings.Contains(option, "ORDER_FLAG"):
			order := value == "Y"
			id.Order = &order
		}
	}
	return id
}

// identityNumber parses a sequence bound. Bounds exceed int64: the default
// MAX_VALUE is 9999999999999999999999999999.
func (in *Inspector) identityNumber(option, value string) *decimal.Decimal {
	n, err := decimal.NewFromString(value)
	if err != nil || !n.IsInteger() {
		in.skipIdentityOption(option, value)
		return nil
	}
	return &n
}

func (in *Inspector) identityInt(option, value string) *int64 {
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		in.skipIdentityOption(option, value)
		return nil
	}
	return &n
}

func (in *Inspector) skipIdentityOption(option, value string) {
	in.logger.Warn("skipping identity option with a non integer value",
		zap.String("option", strings.TrimSpace(option)),
		zap.String("value", value),
	)
}
