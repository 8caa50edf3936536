package domain

import (
	"fmt"
	"strings"
)

// Address is an immutable postal address. The zero value is "no address".
type Address struct {
	street  string
	city    string
	state   string
	zipCode string
	country string
}

func NewAddress(street, city, state, zipCode, country string) (Address, error) {
	switch {
	case blank(street):
		return Address{}, invalid("Street cannot be empty.")
	case blank(city):
		return Address{}, invalid("City cannot be empty.")
	case blank(state):
		return Address{}, invalid("State cannot be empty.")
	case blank(zipCode):
		return Address{}, invalid("Zip code cannot be empty.")
	case blank(country):
		return Address{}, invalid("Country cannot be empty.")
	}

	return Address{
		street:  street,
		city:    city,
		state:   state,
		zipCode: zipCode,
		country: country,
	}, nil
}

func (a Address) Street() string  { return a.street }
func (a Address) City() string    { return a.city }
func (a Address) State() string   { return a.state }
func (a Address) ZipCode() string { return a.zipCode }
func (a Address) Country() string { return a.country }

func (a Address) IsZero() bool { return a == Address{} }

func (a Address) Equal(other Address) bool { return a == other }

func (a Address) FullAddress() string {
	return fmt.Sprintf("%s, %s, %s %s, %s", a.street, a.city, a.state, a.zipCode, a.country)
}

func (a Address) String() string { return a.FullAddress() }

// AddressState carries address columns without validation.
type AddressState struct {
	Street  string
	City    string
	State   string
	ZipCode string
	Country string
}

func (a Address) Snapshot() AddressState {
	return AddressState{Street: a.street, City: a.city, State: a.state, ZipCode: a.zipCode, Country: a.country}
}

func RestoreAddress(s AddressState) Address {
	return Address{street: s.Street, city: s.City, state: s.State, zipCode: s.ZipCode, country: s.Country}
}

func blank(s string) bool { return strings.TrimSpace(s) == "" }
