package domain

import (
	"time"

	"github.com/google/uuid"
)

type Customer struct {
	id               string
	firstName        string
	lastName         string
	email            string
	phoneNumber      string
	address          Address
	status           CustomerStatus
	registrationDate time.Time
	lastLoginDate    *time.Time
	createdAt        time.Time
	updatedAt        *time.Time
}

func NewCustomer(firstName, lastName, email, phoneNumber string, address Address) (*Customer, error) {
	switch {
	case blank(firstName):
		return nil, invalid("First name cannot be empty.")
	case blank(lastName):
		return nil, invalid("Last name cannot be empty.")
	case blank(email):
		return nil, invalid("Email cannot be empty.")
	case blank(phoneNumber):
		return nil, invalid("Phone number cannot be empty.")
	case address.IsZero():
		return nil, invalid("Address cannot be null.")
	}

	now := time.Now().UTC()
	return &Customer{
		id:               uuid.NewString(),
		firstName:        firstName,
		lastName:         lastName,
		email:            email,
		phoneNumber:      phoneNumber,
		address:          address,
		status:           CustomerStatusActive,
		registrationDate: now,
		createdAt:        now,
	}, nil
}

func (c *Customer) ID() string                  { return c.id }
func (c *Customer) FirstName() string           { return c.firstName }
func (c *Customer) LastName() string            { return c.lastName }
func (c *Customer) FullName() string            { return c.firstName + " " + c.lastName }
func (c *Customer) Email() string               { return c.email }
func (c *Customer) PhoneNumber() string         { return c.phoneNumber }
func (c *Customer) Address() Address            { return c.address }
func (c *Customer) Status() CustomerStatus      { return c.status }
func (c *Customer) RegistrationDate() time.Time { return c.registrationDate }
func (c *Customer) LastLoginDate() *time.Time   { return c.lastLoginDate }
func (c *Customer) CreatedAt() time.Time        { return c.createdAt }
func (c *Customer) UpdatedAt() *time.Time       { return c.updatedAt }

func (c *Customer) UpdateName(firstName, lastName string) error {
	switch {
	case blank(firstName):
		return invalid("First name cannot be empty.")
	case blank(lastName):
		return invalid("Last name cannot be empty.")
	}
	c.firstName = firstName
	c.lastName = lastName
	c.touch()
	return nil
}

func (c *Customer) UpdateContactInfo(email, phoneNumber string) error {
	switch {
	case blank(email):
		return invalid("Email cannot be empty.")
	case blank(phoneNumber):
		return invalid("Phone number cannot be empty.")
	}
	c.email = email
	c.phoneNumber = phoneNumber
	c.touch()
	return nil
}

func (c *Customer) UpdateAddress(address Address) error {
	if address.IsZero() {
		return invalid("Address cannot be null.")
	}
	c.address = address
	c.touch()
	return nil
}

// Activate and Deactivate apply from any current status.
func (c *Customer) Activate() {
	c.status = CustomerStatusActive
	c.touch()
}

func (c *Customer) Deactivate() {
	c.status = CustomerStatusInactive
	c.touch()
}

func (c *Customer) UpdateLastLogin() {
	now := time.Now().UTC()
	c.lastLoginDate = &now
	c.touch()
}

func (c *Customer) touch() {
	now := time.Now().UTC()
	c.updatedAt = &now
}

type CustomerState struct {
	ID               string
	FirstName        string
	LastName         string
	Email            string
	PhoneNumber      string
	Address          AddressState
	Status           CustomerStatus
	RegistrationDate time.Time
	LastLoginDate    *time.Time
	CreatedAt        time.Time
	UpdatedAt        *time.Time
}

func (c *Customer) Snapshot() CustomerState {
	return CustomerState{
		ID:               c.id,
		FirstName:        c.firstName,
		LastName:         c.lastName,
		Email:            c.email,
		PhoneNumber:      c.phoneNumber,
		Address:          c.address.Snapshot(),
		Status:           c.status,
		RegistrationDate: c.registrationDate,
		LastLoginDate:    copyTime(c.lastLoginDate),
		CreatedAt:        c.createdAt,
		UpdatedAt:        copyTime(c.updatedAt),
	}
}

func RestoreCustomer(s CustomerState) *Customer {
	return &Customer{
		id:               s.ID,
		firstName:        s.FirstName,
		lastName:         s.LastName,
		email:            s.Email,
		phoneNumber:      s.PhoneNumber,
		address:          RestoreAddress(s.Address),
		status:           s.Status,
		registrationDate: s.RegistrationDate,
		lastLoginDate:    copyTime(s.LastLoginDate),
		createdAt:        s.CreatedAt,
		updatedAt:        copyTime(s.UpdatedAt),
	}
}
