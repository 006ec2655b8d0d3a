// Package persona generates synthetic identities for filling web forms.
// Generation draws from fixed vocabularies through an injectable random
// source and has no side effects.
package persona

import "time"

// Address is a structured postal address with a rendered single-line form.
type Address struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	Region  string `json:"region"`
	ZipCode string `json:"zip_code"`
	Country string `json:"country"`
	Full    string `json:"full"`
}

// Persona holds the generated identity fields.
type Persona struct {
	FirstName   string  `json:"first_name"`
	LastName    string  `json:"last_name"`
	FullName    string  `json:"full_name"`
	Username    string  `json:"username"`
	Email       string  `json:"email"`
	Phone       string  `json:"phone"`
	DateOfBirth string  `json:"date_of_birth"`
	Address     Address `json:"address"`
}

// Draft is a freshly generated persona that has not been saved.
type Draft struct {
	Persona
	Domain string `json:"domain"`
}

// Link ties a saved persona to a remote alias.
type Link struct {
	AliasID         int64  `json:"alias_id"`
	Email           string `json:"email"`
	Enabled         bool   `json:"enabled"`
	DeletedRemotely bool   `json:"deleted_remotely,omitempty"`
}

// Saved is a persisted persona.
type Saved struct {
	Persona
	ID        string    `json:"id"`
	Domain    string    `json:"domain"`
	CreatedAt time.Time `json:"created_at"`
	Alias     *Link     `json:"alias,omitempty"`
}

// Save turns a draft into a saved persona. It is the only way to obtain a
// Saved value from generated data.
func (d Draft) Save(id string, createdAt time.Time) Saved {
	return Saved{
		Persona:   d.Persona,
		ID:        id,
		Domain:    d.Domain,
		CreatedAt: createdAt,
	}
}

// Linked reports whether the persona carries an alias linkage.
func (s Saved) Linked() bool {
	return s.Alias != nil
}

// AliasID returns the linked alias id, or 0 and false when unlinked.
func (s Saved) AliasID() (int64, bool) {
	if s.Alias == nil {
		return 0, false
	}
	return s.Alias.AliasID, true
}

// Clone returns a copy that shares no pointers with s.
func (s Saved) Clone() Saved {
	if s.Alias != nil {
		l := *s.Alias
		s.Alias = &l
	}
	return s
}
