package promotion

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

const (
	Alphabet           = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	SuffixLength       = 5
	PlaceholderPrefix  = "PR"
	DefaultMaxAttempts = 10
)

var ErrCodeGenerationExhausted = errors.New("no se pudo generar un código de promoción único")

// Source elige un índice en [0, n). *rand.Rand lo implementa.
type Source interface {
	IntN(n int) int
}

// Generator genera códigos "<prefijo><5 caracteres>". Es seguro para uso concurrente.
type Generator struct {
	mu          sync.Mutex
	rnd         Source
	maxAttempts int
}

// NewGenerator usa rnd como fuente aleatoria; nil usa PCG con semilla aleatoria.
func NewGenerator(maxAttempts int, rnd Source) *Generator {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if rnd == nil {
		rnd = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Generator{rnd: rnd, maxAttempts: maxAttempts}
}

// Prefix toma los dos primeros caracteres de la descripción en mayúsculas.
// Se pasa a mayúsculas antes de cortar porque algunas runas se expanden
// (ß → SS).
func Prefix(description string) string {
	d := norm.NFC.String(strings.TrimSpace(description))
	if d == "" {
		return PlaceholderPrefix
	}
	d = norm.NFC.String(cases.Upper(language.Und).String(d))

	end := 0
	for i := 0; i < 2 && end < len(d); i++ {
		_, size := utf8.DecodeRuneInString(d[end:])
		end += size
	}
	return d[:end]
}

// GenerateCode reintenta con un sufijo nuevo mientras el código ya exista.
func (g *Generator) GenerateCode(description string, existing map[string]struct{}) (string, error) {
	prefix := Prefix(description)
	for attempt := 0; attempt < g.maxAttempts; attempt++ {
		code := prefix + g.suffix()
		if _, taken := existing[code]; !taken {
			return code, nil
		}
	}
	return "", fmt.Errorf("%w: %d intentos con prefijo %q", ErrCodeGenerationExhausted, g.maxAttempts, prefix)
}

func (g *Generator) suffix() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	var b strings.Builder
	b.Grow(SuffixLength)
	for i := 0; i < SuffixLength; i++ {
		b.WriteByte(Alphabet[g.rnd.IntN(len(Alphabet))])
	}
	return b.String()
}
