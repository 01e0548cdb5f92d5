package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CustomerStatus represents the commercial standing of a customer
type CustomerStatus string

const (
	CustomerStatusActive    CustomerStatus = "active"
	CustomerStatusOnHold    CustomerStatus = "on_hold"
	CustomerStatusSuspended CustomerStatus = "suspended"
	CustomerStatusClosed    CustomerStatus = "closed"
)

// Customer is the collaborator view of a customer used by order creation.
// Customer CRUD lives outside this service; only the call contract matters here.
type Customer struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CustomerID      string             `bson:"customerId" json:"customerId"`
	Code            string             `bson:"code" json:"code"`
	Name            string             `bson:"name" json:"name"`
	AgencyID        string             `bson:"agencyId" json:"agencyId"`
	CreditLimit     Money              `bson:"creditLimit" json:"creditLimit"`
	Balance         Money              `bson:"balance" json:"balance"`
	CreditDays      int                `bson:"creditDays" json:"creditDays"`
	Status          CustomerStatus     `bson:"status" json:"status"`
	OrdersCount     int64              `bson:"ordersCount" json:"ordersCount"`
	TotalOrderValue Money              `bson:"totalOrderValue" json:"totalOrderValue"`
	UpdatedAt       time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// CanPlaceOrders returns true if the customer is eligible to place new orders
func (c *Customer) CanPlaceOrders() bool {
	return c.Status == CustomerStatusActive
}

// AvailableCredit returns creditLimit minus outstanding balance, floored at zero
func (c *Customer) AvailableCredit() Money {
	available, err := c.CreditLimit.Subtract(c.Balance)
	if err != nil || available.IsNegative() {
		return ZeroMoney(c.CreditLimit.Currency())
	}
	return available
}

// CustomerSnapshot is the customer state captured on the order at creation
// time, used to detect concurrent changes at confirmation
type CustomerSnapshot struct {
	CustomerID  string `bson:"customerId" json:"customerId"`
	Code        string `bson:"code" json:"code"`
	Name        string `bson:"name" json:"name"`
	CreditLimit Money  `bson:"creditLimit" json:"creditLimit"`
	Balance     Money  `bson:"balance" json:"balance"`
}

// Snapshot captures the order-relevant customer state
func (c *Customer) Snapshot() CustomerSnapshot {
	return CustomerSnapshot{
		CustomerID:  c.CustomerID,
		Code:        c.Code,
		Name:        c.Name,
		CreditLimit: c.CreditLimit,
		Balance:     c.Balance,
	}
}
