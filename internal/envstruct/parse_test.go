package envstruct_test

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/myrjola/recoverfit/internal/envstruct"
)

type llmSettings struct {
	BaseURL    string        `env:"LLM_BASE_URL" envDefault:"https://api.example.com/"`
	Timeout    time.Duration `env:"LLM_TIMEOUT" envDefault:"20s"`
	MaxRetries int           `env:"LLM_MAX_RETRIES" envDefault:"2"`
	Secure     bool          `env:"SECURE" envDefault:"true"`
	Temp       float64       `env:"LLM_TEMPERATURE" envDefault:"0.7"`
	Untagged   string
}

func lookup(values map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	}
}

func TestPopulate(t *testing.T) {
	tests := []struct {
		name    string
		v       any
		env     map[string]string
		want    any
		wantErr error
	}{
		{
			name:    "nil",
			v:       nil,
			wantErr: envstruct.ErrInvalidValue,
		},
		{
			name:    "not pointer",
			v:       struct{}{},
			wantErr: envstruct.ErrInvalidValue,
		},
		{
			name: "empty struct",
			v:    &struct{}{},
			want: &struct{}{},
		},
		{
			name: "missing required",
			v: &struct { //nolint:exhaustruct // populated later
				APIKey string `env:"API_KEY"`
			}{},
			wantErr: envstruct.ErrEnvNotSet,
		},
		{
			name: "defaults",
			v:    &llmSettings{}, //nolint:exhaustruct // populated later
			want: &llmSettings{
				BaseURL:    "https://api.example.com/",
				Timeout:    20 * time.Second,
				MaxRetries: 2,
				Secure:     true,
				Temp:       0.7,
				Untagged:   "",
			},
		},
		{
			name: "overrides",
			v:    &llmSettings{}, //nolint:exhaustruct // populated later
			env: map[string]string{
				"LLM_BASE_URL":    "http://127.0.0.1:1234/",
				"LLM_TIMEOUT":     "1500ms",
				"LLM_MAX_RETRIES": "0",
				"SECURE":          "false",
				"LLM_TEMPERATURE": "0.2",
			},
			want: &llmSettings{
				BaseURL:    "http://127.0.0.1:1234/",
				Timeout:    1500 * time.Millisecond,
				MaxRetries: 0,
				Secure:     false,
				Temp:       0.2,
				Untagged:   "",
			},
		},
		{
			name:    "bad duration",
			v:       &llmSettings{}, //nolint:exhaustruct // populated later
			env:     map[string]string{"LLM_TIMEOUT": "soon"},
			wantErr: envstruct.ErrParse,
		},
		{
			name:    "bad int",
			v:       &llmSettings{}, //nolint:exhaustruct // populated later
			env:     map[string]string{"LLM_MAX_RETRIES": "many"},
			wantErr: envstruct.ErrParse,
		},
		{
			name: "unsupported kind",
			v: &struct { //nolint:exhaustruct // populated later
				Tags []string `env:"TAGS" envDefault:"a,b"`
			}{},
			wantErr: envstruct.ErrInvalidValue,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := envstruct.Populate(tt.v, lookup(tt.env))

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Populate() error = %v, wantErr %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Populate() unexpected error = %v", err)
			}
			if diff := cmp.Diff(tt.want, tt.v); diff != "" {
				t.Errorf("Populate() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
