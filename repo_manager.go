package storefront

import (
	"errors"

	"github.com/uptrace/bun"
)

// RepositoryManager exposes all repositories
type RepositoryManager interface {
	Validate() error
	Users() Users
	Orders() Orders
	AuditRecords() AuditRecords
}

type mngr struct {
	db           *bun.DB
	users        Users
	orders       Orders
	auditRecords AuditRecords
}

// NewRepositoryManager wires the three stores over a shared bun handle.
func NewRepositoryManager(db *bun.DB) RepositoryManager {
	return &mngr{
		db:           db,
		users:        NewUsersRepository(db),
		orders:       NewOrdersRepository(db),
		auditRecords: NewAuditRecordsRepository(db),
	}
}

func (m mngr) Validate() error {
	if m.users == nil {
		return errors.New("manager is missing users repository")
	}

	if m.orders == nil {
		return errors.New("manager is missing orders repository")
	}

	if m.auditRecords == nil {
		return errors.New("manager is missing audit records repository")
	}

	return nil
}

func (m mngr) Users() Users {
	return m.users
}

func (m mngr) Orders() Orders {
	return m.orders
}

func (m mngr) AuditRecords() AuditRecords {
	return m.auditRecords
}
