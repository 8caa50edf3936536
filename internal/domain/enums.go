package domain

import (
	"fmt"
	"strconv"
	"strings"
)

type BookCategory int

const (
	CategoryFiction BookCategory = iota + 1
	CategoryNonFiction
	CategoryScience
	CategoryTechnology
	CategoryBusiness
	CategorySelfHelp
	CategoryBiography
	CategoryHistory
	CategoryPhilosophy
	CategoryReligion
	CategoryChildren
	CategoryYoungAdult
	CategoryMystery
	CategoryThriller
	CategoryRomance
	CategoryFantasy
	CategoryScienceFiction
	CategoryHorror
	CategoryPoetry
	CategoryDrama
	CategoryTravel
	CategoryCooking
	CategoryArt
	CategoryMusic
	CategorySports
	CategoryEducation
	CategoryReference
	CategoryOther
)

var bookCategoryNames = []string{
	"Fiction", "NonFiction", "Science", "Technology", "Business", "SelfHelp", "Biography",
	"History", "Philosophy", "Religion", "Children", "YoungAdult", "Mystery", "Thriller",
	"Romance", "Fantasy", "ScienceFiction", "Horror", "Poetry", "Drama", "Travel", "Cooking",
	"Art", "Music", "Sports", "Education", "Reference", "Other",
}

func (c BookCategory) String() string { return enumName(bookCategoryNames, int(c)) }

func (c BookCategory) Valid() bool { return c >= CategoryFiction && c <= CategoryOther }

func ParseBookCategory(s string) (BookCategory, error) {
	v, err := parseEnum(bookCategoryNames, s)
	if err != nil {
		return 0, fmt.Errorf("book category: %w", err)
	}
	return BookCategory(v), nil
}

type BookStatus int

const (
	BookStatusAvailable BookStatus = iota + 1
	BookStatusOutOfStock
	BookStatusDiscontinued
	BookStatusPreOrder
)

var bookStatusNames = []string{"Available", "OutOfStock", "Discontinued", "PreOrder"}

func (s BookStatus) String() string { return enumName(bookStatusNames, int(s)) }

func (s BookStatus) Valid() bool { return s >= BookStatusAvailable && s <= BookStatusPreOrder }

func ParseBookStatus(s string) (BookStatus, error) {
	v, err := parseEnum(bookStatusNames, s)
	if err != nil {
		return 0, fmt.Errorf("book status: %w", err)
	}
	return BookStatus(v), nil
}

type CustomerStatus int

const (
	CustomerStatusActive CustomerStatus = iota + 1
	CustomerStatusInactive
	CustomerStatusSuspended
	CustomerStatusBanned
)

var customerStatusNames = []string{"Active", "Inactive", "Suspended", "Banned"}

func (s CustomerStatus) String() string { return enumName(customerStatusNames, int(s)) }

func (s CustomerStatus) Valid() bool {
	return s >= CustomerStatusActive && s <= CustomerStatusBanned
}

func ParseCustomerStatus(s string) (CustomerStatus, error) {
	v, err := parseEnum(customerStatusNames, s)
	if err != nil {
		return 0, fmt.Errorf("customer status: %w", err)
	}
	return CustomerStatus(v), nil
}

type OrderStatus int

const (
	OrderStatusPending OrderStatus = iota + 1
	OrderStatusConfirmed
	OrderStatusShipped
	OrderStatusDelivered
	OrderStatusCancelled
)

var orderStatusNames = []string{"Pending", "Confirmed", "Shipped", "Delivered", "Cancelled"}

func (s OrderStatus) String() string { return enumName(orderStatusNames, int(s)) }

func (s OrderStatus) Valid() bool { return s >= OrderStatusPending && s <= OrderStatusCancelled }

// IsTerminal reports whether no further transition can leave the status.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

func ParseOrderStatus(s string) (OrderStatus, error) {
	v, err := parseEnum(orderStatusNames, s)
	if err != nil {
		return 0, fmt.Errorf("order status: %w", err)
	}
	return OrderStatus(v), nil
}

type PaymentMethod int

const (
	PaymentCreditCard PaymentMethod = iota + 1
	PaymentDebitCard
	PaymentPayPal
	PaymentBankTransfer
	PaymentCashOnDelivery
	PaymentGiftCard
)

var paymentMethodNames = []string{"CreditCard", "DebitCard", "PayPal", "BankTransfer", "CashOnDelivery", "GiftCard"}

func (m PaymentMethod) String() string { return enumName(paymentMethodNames, int(m)) }

func (m PaymentMethod) Valid() bool { return m >= PaymentCreditCard && m <= PaymentGiftCard }

func ParsePaymentMethod(s string) (PaymentMethod, error) {
	v, err := parseEnum(paymentMethodNames, s)
	if err != nil {
		return 0, fmt.Errorf("payment method: %w", err)
	}
	return PaymentMethod(v), nil
}

// enumName renders 1-based enum values; unknown values print as their number.
func enumName(names []string, v int) string {
	if v < 1 || v > len(names) {
		return strconv.Itoa(v)
	}
	return names[v-1]
}

// parseEnum accepts either the case-insensitive name or the numeric value.
func parseEnum(names []string, s string) (int, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		if n < 1 || n > len(names) {
			return 0, fmt.Errorf("value %d out of range", n)
		}
		return n, nil
	}
	for i, name := range names {
		if strings.EqualFold(name, s) {
			return i + 1, nil
		}
	}
	return 0, fmt.Errorf("unknown value %q", s)
}

func (c BookCategory) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

func (c *BookCategory) UnmarshalText(b []byte) error {
	v, err := ParseBookCategory(string(b))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

func (s BookStatus) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *BookStatus) UnmarshalText(b []byte) error {
	v, err := ParseBookStatus(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

func (s CustomerStatus) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *CustomerStatus) UnmarshalText(b []byte) error {
	v, err := ParseCustomerStatus(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

func (s OrderStatus) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *OrderStatus) UnmarshalText(b []byte) error {
	v, err := ParseOrderStatus(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

func (m PaymentMethod) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

func (m *PaymentMethod) UnmarshalText(b []byte) error {
	v, err := ParsePaymentMethod(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}
