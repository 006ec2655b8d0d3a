package persona

import (
	"fmt"
	"strings"
	"time"
)

// Generator produces random personas.
type Generator struct {
	rnd Rand
	now func() time.Time
}

// Option configures a Generator.
type Option func(*Generator)

// WithRand sets the random source. Seeded sources make output reproducible.
func WithRand(r Rand) Option {
	return func(g *Generator) { g.rnd = r }
}

// WithClock sets the clock used to compute birth years.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

// New creates a generator backed by crypto/rand unless overridden.
func New(opts ...Option) *Generator {
	g := &Generator{
		rnd: CryptoRand{},
		now: time.Now,
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

// Generate produces a complete draft persona for domain. It never fails;
// an empty or malformed domain yields an empty site identifier.
func (g *Generator) Generate(domain string) Draft {
	first, last := g.Name()
	suffix := g.suffix(6)
	site := SiteName(domain)
	lower := strings.ToLower(first)

	return Draft{
		Persona: Persona{
			FirstName:   first,
			LastName:    last,
			FullName:    first + " " + last,
			Username:    site + "_" + lower + "_" + suffix,
			Email:       site + "_" + lower + suffix + "@" + sinkDomain,
			Phone:       g.phone(),
			DateOfBirth: g.dob(),
			Address:     g.address(),
		},
		Domain: domain,
	}
}

// Name draws a first/last name pair.
func (g *Generator) Name() (first, last string) {
	return g.pick(firstNames), g.pick(lastNames)
}

// SiteName derives a short site identifier from a domain by stripping one
// known top-level suffix and removing the remaining dots. The suffix match
// ignores case; the rest of the domain keeps its case.
func SiteName(domain string) string {
	d := strings.TrimSpace(domain)
	lower := strings.ToLower(d)
	for _, tld := range tlds {
		if strings.HasSuffix(lower, tld) {
			d = d[:len(d)-len(tld)]
			break
		}
	}
	return strings.ReplaceAll(d, ".", "")
}

// phone generates a North American number: (XXX) XXX-XXXX with area code
// and exchange in [200, 999].
func (g *Generator) phone() string {
	area := g.between(200, 999)
	exchange := g.between(200, 999)
	line := g.between(1000, 9999)
	return fmt.Sprintf("(%03d) %03d-%04d", area, exchange, line)
}

// dob generates a YYYY-MM-DD birth date for an age between 18 and 65.
// Days stop at 28 so every month is valid.
func (g *Generator) dob() string {
	year := g.now().Year() - g.between(18, 65)
	month := g.between(1, 12)
	day := g.between(1, 28)
	return fmt.Sprintf("%04d-%02d-%02d", year, month, day)
}

func (g *Generator) address() Address {
	street := fmt.Sprintf("%d %s %s", g.between(100, 9999), g.pick(streetNames), g.pick(streetTypes))
	city := g.pick(cities)
	st := states[g.rnd.IntN(len(states))]
	zip := fmt.Sprintf("%05d", g.between(10000, 99999))

	return Address{
		Street:  street,
		City:    city,
		State:   st.code,
		Region:  st.name,
		ZipCode: zip,
		Country: country,
		Full:    fmt.Sprintf("%s, %s, %s %s, %s", street, city, st.code, zip, country),
	}
}

func (g *Generator) suffix(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = suffixChars[g.rnd.IntN(len(suffixChars))]
	}
	return string(b)
}

// pick returns a random element from a string slice.
func (g *Generator) pick(s []string) string {
	return s[g.rnd.IntN(len(s))]
}

// between returns a random int in [lo, hi].
func (g *Generator) between(lo, hi int) int {
	return lo + g.rnd.IntN(hi-lo+1)
}
