package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"

	"lte-sms-manager/internal/whitelist"
)

type modemConfig struct {
	Host     string `mapstructure:"host"`
	Title    string `mapstructure:"title"`
	Password string `mapstructure:"password"`
}

// settingsSource serves the whitelist keys of the config file as a flat
// settings map. contacts may be written either as the stored string format
// or as a YAML list of {uuid, name, number}.
type settingsSource struct {
	v *viper.Viper
}

func (s settingsSource) Load(_ context.Context) (map[string]string, error) {
	contacts, err := contactsSetting(s.v.Get(whitelist.KeyContacts))
	if err != nil {
		return nil, err
	}
	numbers, err := numbersSetting(s.v.Get(whitelist.KeyNumbers))
	if err != nil {
		return nil, err
	}
	return map[string]string{
		whitelist.KeyNumbers:  numbers,
		whitelist.KeyContacts: contacts,
	}, nil
}

// YAML reads unquoted phone numbers as ints or floats, which drops leading
// zeros and the plus sign. Such entries are rejected rather than converted.
func numbersSetting(raw any) (string, error) {
	switch v := raw.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case []any:
		var b strings.Builder
		for _, n := range v {
			str, ok := n.(string)
			if !ok {
				return "", unquotedError(whitelist.KeyNumbers, n)
			}
			b.WriteString(str)
			b.WriteString("\n")
		}
		return b.String(), nil
	default:
		return "", unquotedError(whitelist.KeyNumbers, v)
	}
}

func contactsSetting(raw any) (string, error) {
	switch v := raw.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case []any:
		for _, item := range v {
			entry, ok := item.(map[string]any)
			if !ok {
				return "", fmt.Errorf("%s: entry %v is not a {uuid, name, number} mapping", whitelist.KeyContacts, item)
			}
			for _, key := range []string{"uuid", "name", "number"} {
				if f, present := entry[key]; present {
					if _, ok := f.(string); !ok {
						return "", unquotedError(whitelist.KeyContacts+"."+key, f)
					}
				}
			}
		}
		b, err := json.Marshal(v)
		if err != nil {
			return "", fmt.Errorf("encode contacts: %w", err)
		}
		return string(b), nil
	default:
		return "", fmt.Errorf("%s must be a string or a list of contacts, got %T", whitelist.KeyContacts, v)
	}
}

func unquotedError(key string, v any) error {
	return fmt.Errorf("%s: entry %v is not a string; quote phone numbers in the config file", key, v)
}

// saveContacts writes the encoded contact book back into the config file,
// leaving every other key of the file untouched.
func (a *app) saveContacts(encoded string) (string, error) {
	path := a.cfgFile
	if path == "" {
		path = a.v.ConfigFileUsed()
	}
	if path == "" {
		path = configName + ".yaml"
	}

	fv := viper.New()
	fv.SetConfigFile(path)
	if err := fv.ReadInConfig(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	fv.Set(whitelist.KeyContacts, encoded)
	if err := fv.WriteConfigAs(path); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	a.v.Set(whitelist.KeyContacts, encoded)
	return path, nil
}
