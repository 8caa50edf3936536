package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/safar/go-bookstore/internal/domain"
	"github.com/safar/go-bookstore/internal/repository"
)

type CreateCustomerCommand struct {
	FirstName   string     `json:"first_name"`
	LastName    string     `json:"last_name"`
	Email       string     `json:"email"`
	PhoneNumber string     `json:"phone_number"`
	Address     AddressDTO `json:"address"`
}

type UpdateCustomerCommand struct {
	ID          string     `json:"id"`
	FirstName   string     `json:"first_name"`
	LastName    string     `json:"last_name"`
	Email       string     `json:"email"`
	PhoneNumber string     `json:"phone_number"`
	Address     AddressDTO `json:"address"`
}

func (s *Service) CreateCustomer(ctx context.Context, cmd CreateCustomerCommand) (dto CustomerDTO, err error) {
	defer s.observe("create_customer", time.Now(), &err, log.Fields{"email": cmd.Email})

	u, err := s.open(ctx)
	if err != nil {
		return CustomerDTO{}, err
	}
	defer closeUnit(u, s.log)

	taken, err := u.Customers().ExistsByEmail(ctx, cmd.Email)
	if err != nil {
		return CustomerDTO{}, err
	}
	if taken {
		return CustomerDTO{}, emailTaken(cmd.Email)
	}

	address, err := cmd.Address.toDomain()
	if err != nil {
		return CustomerDTO{}, err
	}
	customer, err := domain.NewCustomer(cmd.FirstName, cmd.LastName, cmd.Email, cmd.PhoneNumber, address)
	if err != nil {
		return CustomerDTO{}, err
	}

	if err := u.Customers().Add(ctx, customer); err != nil {
		return CustomerDTO{}, err
	}
	if _, err := u.SaveChanges(ctx); err != nil {
		return CustomerDTO{}, uniqueConflict(err, emailTaken(cmd.Email))
	}
	return toCustomerDTO(customer), nil
}

func (s *Service) UpdateCustomer(ctx context.Context, cmd UpdateCustomerCommand) (dto CustomerDTO, err error) {
	defer s.observe("update_customer", time.Now(), &err, log.Fields{"customer_id": cmd.ID})

	u, err := s.open(ctx)
	if err != nil {
		return CustomerDTO{}, err
	}
	defer closeUnit(u, s.log)

	customer, err := u.Customers().GetByID(ctx, cmd.ID)
	if err != nil {
		return CustomerDTO{}, notFound(err, "Customer", cmd.ID)
	}

	owner, err := u.Customers().GetByEmail(ctx, cmd.Email)
	switch {
	case errors.Is(err, repository.ErrNotFound):
	case err != nil:
		return CustomerDTO{}, err
	case owner.ID() != customer.ID():
		return CustomerDTO{}, emailTaken(cmd.Email)
	}

	if err := customer.UpdateName(cmd.FirstName, cmd.LastName); err != nil {
		return CustomerDTO{}, err
	}
	if err := customer.UpdateContactInfo(cmd.Email, cmd.PhoneNumber); err != nil {
		return CustomerDTO{}, err
	}
	address, err := cmd.Address.toDomain()
	if err != nil {
		return CustomerDTO{}, err
	}
	if err := customer.UpdateAddress(address); err != nil {
		return CustomerDTO{}, err
	}

	if err := u.Customers().Update(ctx, customer); err != nil {
		return CustomerDTO{}, err
	}
	if _, err := u.SaveChanges(ctx); err != nil {
		return CustomerDTO{}, uniqueConflict(err, emailTaken(cmd.Email))
	}
	return toCustomerDTO(customer), nil
}

// UpdateCustomerStatus activates for Active. Inactive, Suspended and Banned
// all deactivate.
func (s *Service) UpdateCustomerStatus(ctx context.Context, id string, status domain.CustomerStatus) (dto CustomerDTO, err error) {
	defer s.observe("update_customer_status", time.Now(), &err, log.Fields{"customer_id": id, "status": status.String()})

	u, err := s.open(ctx)
	if err != nil {
		return CustomerDTO{}, err
	}
	defer closeUnit(u, s.log)

	customer, err := u.Customers().GetByID(ctx, id)
	if err != nil {
		return CustomerDTO{}, notFound(err, "Customer", id)
	}

	switch status {
	case domain.CustomerStatusActive:
		customer.Activate()
	case domain.CustomerStatusInactive, domain.CustomerStatusSuspended, domain.CustomerStatusBanned:
		customer.Deactivate()
	default:
		return CustomerDTO{}, domain.NewStateConflict("Invalid status transition to %s", status)
	}

	if err := u.Customers().Update(ctx, customer); err != nil {
		return CustomerDTO{}, err
	}
	if _, err := u.SaveChanges(ctx); err != nil {
		return CustomerDTO{}, err
	}
	return toCustomerDTO(customer), nil
}

// DeleteCustomer reports false when the customer does not exist. Customers
// with orders that are neither delivered nor cancelled are kept.
func (s *Service) DeleteCustomer(ctx context.Context, id string) (deleted bool, err error) {
	defer s.observe("delete_customer", time.Now(), &err, log.Fields{"customer_id": id})

	u, err := s.open(ctx)
	if err != nil {
		return false, err
	}
	defer closeUnit(u, s.log)

	err = s.inTransaction(ctx, u, "delete_customer", func() error {
		if _, err := u.Customers().GetByID(ctx, id); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil
			}
			return err
		}

		orders, err := u.Orders().GetByCustomerID(ctx, id)
		if err != nil {
			return err
		}
		active := 0
		for _, order := range orders {
			if !order.Status().IsTerminal() {
				active++
			}
		}
		if active > 0 {
			return domain.NewStateConflict("Cannot delete customer with ID %s. Customer has %d active orders.", id, active)
		}

		deleted = true
		return u.Customers().Delete(ctx, id)
	})
	if err != nil {
		return false, err
	}
	return deleted, nil
}

func (s *Service) GetCustomerByID(ctx context.Context, id string) (CustomerDTO, error) {
	u, err := s.open(ctx)
	if err != nil {
		return CustomerDTO{}, err
	}
	defer closeUnit(u, s.log)

	customer, err := u.Customers().GetByID(ctx, id)
	if err != nil {
		return CustomerDTO{}, notFound(err, "Customer", id)
	}
	return toCustomerDTO(customer), nil
}

func (s *Service) GetCustomerByEmail(ctx context.Context, email string) (CustomerDTO, error) {
	u, err := s.open(ctx)
	if err != nil {
		return CustomerDTO{}, err
	}
	defer closeUnit(u, s.log)

	customer, err := u.Customers().GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return CustomerDTO{}, &domain.NotFoundError{Entity: "Customer", ID: email}
	}
	if err != nil {
		return CustomerDTO{}, err
	}
	return toCustomerDTO(customer), nil
}

// ListCustomers lists every customer, or those with status when it is set.
func (s *Service) ListCustomers(ctx context.Context, status domain.CustomerStatus) ([]CustomerDTO, error) {
	u, err := s.open(ctx)
	if err != nil {
		return nil, err
	}
	defer closeUnit(u, s.log)

	var customers []*domain.Customer
	if status != 0 {
		customers, err = u.Customers().GetByStatus(ctx, status)
	} else {
		customers, err = u.Customers().GetAll(ctx)
	}
	if err != nil {
		return nil, err
	}

	out := make([]CustomerDTO, 0, len(customers))
	for _, c := range customers {
		out = append(out, toCustomerDTO(c))
	}
	return out, nil
}

func emailTaken(email string) error {
	return &domain.ConflictError{Message: fmt.Sprintf("Email %s is already taken by another customer", email)}
}
