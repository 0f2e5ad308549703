package universe

import (
	"bytes"
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/ark-poiop/dkwjawj-renew/internal/contracts"
)

//go:embed default.yaml
var defaultYAML []byte

// File is the on-disk universe document
type File struct {
	Version     int      `yaml:"version" validate:"required,eq=1"`
	Defaults    Defaults `yaml:"defaults"`
	Instruments []Entry  `yaml:"instruments" validate:"dive"`
}

// Defaults applies to entries that leave max_change_pct unset
type Defaults struct {
	IndexMaxChangePct  float64 `yaml:"index_max_change_pct" default:"15" validate:"gt=0,lte=100"`
	EquityMaxChangePct float64 `yaml:"equity_max_change_pct" default:"30" validate:"gt=0,lte=100"`
}

// Entry is one instrument line
type Entry struct {
	Symbol       string  `yaml:"symbol" validate:"required"`
	Name         string  `yaml:"name" validate:"required"`
	Segment      string  `yaml:"segment" validate:"required,oneof=domestic international"`
	Kind         string  `yaml:"kind" default:"index" validate:"oneof=index equity"`
	Code         string  `yaml:"code" validate:"required"`
	Baseline     float64 `yaml:"baseline" validate:"gt=0"`
	MinPrice     float64 `yaml:"min_price" validate:"gt=0"`
	MaxPrice     float64 `yaml:"max_price" validate:"gtfield=MinPrice"`
	MaxChangePct float64 `yaml:"max_change_pct" validate:"gte=0,lte=100"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Universe is the immutable instrument set of one process
// ⭐ SSOT: 종목/검증 범위는 여기서만 로드, 생성자에 명시적으로 전달
type Universe struct {
	instruments []contracts.Instrument
	bySymbol    map[string]contracts.Instrument
	hash        string
}

// 파일의 defaults 블록과 같은 기본 등락률 상한
const (
	defaultIndexMaxChangePct  = 15
	defaultEquityMaxChangePct = 30
)

// New builds a universe from already-validated instruments (tests, custom wiring).
// MaxChangePct 가 0 이면 종류별 기본 상한 적용
func New(instruments []contracts.Instrument) *Universe {
	u := &Universe{
		instruments: append([]contracts.Instrument(nil), instruments...),
		bySymbol:    make(map[string]contracts.Instrument, len(instruments)),
	}
	for i := range u.instruments {
		inst := &u.instruments[i]
		if inst.MaxChangePct == 0 {
			inst.MaxChangePct = defaultIndexMaxChangePct
			if inst.Kind == contracts.KindEquity {
				inst.MaxChangePct = defaultEquityMaxChangePct
			}
		}
		u.bySymbol[inst.Symbol] = *inst
	}
	data, _ := json.Marshal(u.instruments)
	sum := sha256.Sum256(data)
	u.hash = hex.EncodeToString(sum[:])
	return u
}

// Default returns the embedded universe
func Default() (*Universe, error) {
	return Parse(defaultYAML)
}

// Load reads a universe file; an empty path selects the embedded default
func Load(path string) (*Universe, error) {
	if path == "" {
		return Default()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, contracts.NewConfigurationError("read universe %s: %v", path, err)
	}
	return Parse(data)
}

// Parse decodes, defaults and validates a universe document.
// KnownFields(true)로 오타/미사용 필드 즉시 실패
func Parse(data []byte) (*Universe, error) {
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, contracts.NewConfigurationError("decode universe: %v", err)
	}

	if err := defaults.Set(&f); err != nil {
		return nil, contracts.NewConfigurationError("apply universe defaults: %v", err)
	}

	if err := validate.Struct(&f); err != nil {
		return nil, contracts.NewConfigurationError("invalid universe: %s", describe(err))
	}

	instruments := make([]contracts.Instrument, 0, len(f.Instruments))
	seen := make(map[string]bool, len(f.Instruments))
	for i, e := range f.Instruments {
		if seen[e.Symbol] {
			return nil, contracts.NewConfigurationError("invalid universe: duplicate symbol %q", e.Symbol)
		}
		seen[e.Symbol] = true

		if e.Baseline < e.MinPrice || e.Baseline > e.MaxPrice {
			return nil, contracts.NewConfigurationError(
				"invalid universe: instruments[%d] baseline %.2f outside [%.2f, %.2f]",
				i, e.Baseline, e.MinPrice, e.MaxPrice)
		}

		maxChange := e.MaxChangePct
		if maxChange == 0 {
			maxChange = f.Defaults.IndexMaxChangePct
			if e.Kind == string(contracts.KindEquity) {
				maxChange = f.Defaults.EquityMaxChangePct
			}
		}

		instruments = append(instruments, contracts.Instrument{
			Symbol:       e.Symbol,
			Name:         e.Name,
			Segment:      contracts.Segment(e.Segment),
			Kind:         contracts.InstrumentKind(e.Kind),
			Code:         e.Code,
			Baseline:     e.Baseline,
			MinPrice:     e.MinPrice,
			MaxPrice:     e.MaxPrice,
			MaxChangePct: maxChange,
		})
	}

	return New(instruments), nil
}

// describe flattens validator errors into one line
func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.TrimPrefix(fe.Namespace(), "File.")
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", field))
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s must be one of [%s]", field, fe.Param()))
		case "gtfield":
			msgs = append(msgs, fmt.Sprintf("%s must be greater than min_price", field))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %s=%s", field, fe.Tag(), fe.Param()))
		}
	}
	return strings.Join(msgs, "; ")
}

// All returns every instrument in file order
func (u *Universe) All() []contracts.Instrument {
	return append([]contracts.Instrument(nil), u.instruments...)
}

// Segment returns the instruments of one segment in file order
func (u *Universe) Segment(seg contracts.Segment) []contracts.Instrument {
	var out []contracts.Instrument
	for _, inst := range u.instruments {
		if inst.Segment == seg {
			out = append(out, inst)
		}
	}
	return out
}

// Lookup finds an instrument by symbol
func (u *Universe) Lookup(symbol string) (contracts.Instrument, bool) {
	inst, ok := u.bySymbol[symbol]
	return inst, ok
}

// Len returns the number of instruments
func (u *Universe) Len() int {
	return len(u.instruments)
}

// Hash identifies the universe contents (recorded in run logs)
func (u *Universe) Hash() string {
	return u.hash
}
