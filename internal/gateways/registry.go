package gateways

import (
	"errors"
	"fmt"
	"sort"
)

var (
	ErrUnknownGateway     = errors.New("unknown_sms_gateway")
	ErrInvalidGatewayArgs = errors.New("invalid_sms_gateway_args")
)

// Factory builds a gateway from its configuration arguments.
type Factory func(args []string) (Gateway, error)

// registry maps PHONE_AUTH_SMS_GATEWAY values to factories. It is filled
// during package initialization and read-only afterwards.
var registry = map[string]Factory{
	DisabledKey: newDisabledGateway,
	LoggerKey:   newLoggerGateway,
	TwilioKey:   newTwilioGateway,
}

// Register adds a gateway under key. Call it from an init function only.
func Register(key string, factory Factory) {
	if key == "" || factory == nil {
		panic("gateways: Register requires a key and a factory")
	}
	if _, dup := registry[key]; dup {
		panic(fmt.Sprintf("gateways: %q registered twice", key))
	}
	registry[key] = factory
}

// Keys lists the registered gateway keys in sorted order.
func Keys() []string {
	keys := make([]string, 0, len(registry))
	for k := range registry {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SelectGateway resolves key in the registry and builds the gateway with
// args. Any error here is a deployment misconfiguration.
func SelectGateway(key string, args []string) (Gateway, error) {
	factory, ok := registry[key]
	if !ok {
		return nil, fmt.Errorf("%w: %q (registered: %v)", ErrUnknownGateway, key, Keys())
	}
	gw, err := factory(args)
	if err != nil {
		return nil, fmt.Errorf("building sms gateway %q: %w", key, err)
	}
	return gw, nil
}
