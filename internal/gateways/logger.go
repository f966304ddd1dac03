package gateways

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/roll-social-network/roll-social-network/internal/models"
	"github.com/roll-social-network/roll-social-network/internal/utils"
	"github.com/sirupsen/logrus"
)

const LoggerKey = "logger"

// DefaultLoggerLevel is used when the logger gateway gets no argument.
const DefaultLoggerLevel = logrus.WarnLevel

// LoggerGateway writes codes to the application log instead of sending
// them, so local environments can sign in without a carrier.
type LoggerGateway struct {
	log   *logrus.Logger
	level logrus.Level
}

func NewLoggerGateway(log *logrus.Logger, level logrus.Level) *LoggerGateway {
	return &LoggerGateway{log: log, level: level}
}

func newLoggerGateway(args []string) (Gateway, error) {
	level := DefaultLoggerLevel
	switch len(args) {
	case 0:
	case 1:
		parsed, err := ParseLoggerLevel(args[0])
		if err != nil {
			return nil, err
		}
		level = parsed
	default:
		return nil, fmt.Errorf("%w: logger takes at most one argument (level), got %d", ErrInvalidGatewayArgs, len(args))
	}
	return NewLoggerGateway(utils.Logger, level), nil
}

// ParseLoggerLevel accepts a logrus level name ("debug", "warning", ...) or
// a numeric syslog-style severity (10 debug, 20 info, 30 warning, 40+ error).
func ParseLoggerLevel(raw string) (logrus.Level, error) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if n, err := strconv.Atoi(raw); err == nil {
		switch {
		case n <= 10:
			return logrus.DebugLevel, nil
		case n <= 20:
			return logrus.InfoLevel, nil
		case n <= 30:
			return logrus.WarnLevel, nil
		default:
			return logrus.ErrorLevel, nil
		}
	}
	if raw == "critical" {
		return logrus.ErrorLevel, nil
	}
	level, err := logrus.ParseLevel(raw)
	if err != nil || level <= logrus.FatalLevel {
		return 0, fmt.Errorf("%w: bad logger level %q", ErrInvalidGatewayArgs, raw)
	}
	return level, nil
}

func (g *LoggerGateway) Level() logrus.Level {
	return g.level
}

func (g *LoggerGateway) Send(_ context.Context, rec *models.VerificationCode) error {
	g.log.WithFields(logrus.Fields{
		"gateway": LoggerKey,
		"user_id": rec.UserID,
	}).Logf(g.level, "[SMSGateway.logger] %s verification code is %s", rec.PhoneNumber, rec.Code)
	return nil
}
