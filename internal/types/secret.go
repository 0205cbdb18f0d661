package types

import "log/slog"

const redacted = "[redacted]"

// SecretString holds a credential-bearing value such as a Redis URL with a
// password. It prints, marshals and logs as a placeholder; call Reveal to get
// the raw value for the one place that needs it.
type SecretString string

func (s SecretString) String() string { return redacted }

// GoString covers %#v.
func (s SecretString) GoString() string { return redacted }

func (s SecretString) MarshalJSON() ([]byte, error) {
	return []byte(`"` + redacted + `"`), nil
}

// LogValue keeps slog attributes redacted.
func (s SecretString) LogValue() slog.Value { return slog.StringValue(redacted) }

// Reveal returns the raw value.
func (s SecretString) Reveal() string { return string(s) }

// IsSet reports whether a value was configured.
func (s SecretString) IsSet() bool { return s != "" }
