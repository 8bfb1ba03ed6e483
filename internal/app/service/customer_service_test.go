package service

import (
	"testing"

	"github.com/ikkim/telecom-settlement-backend/internal/app/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCustomerService(t *testing.T) {
	f := setupOrg(t)
	customers := NewCustomerService(repository.NewCustomerRepository(f.db), f.scopes)

	created, err := customers.CreateCustomer(f.store1, CustomerInput{StoreID: f.s1.ID, Name: " 김고객 ", Phone: "010-1234-5678"})
	require.NoError(t, err)
	assert.Equal(t, "김고객", created.Name)
	assert.Equal(t, "01012345678", created.Phone)

	_, err = customers.CreateCustomer(f.hq, CustomerInput{StoreID: f.s4.ID, Name: "이고객", Phone: "01099998888"})
	require.NoError(t, err)

	_, err = customers.CreateCustomer(f.store1, CustomerInput{StoreID: f.s2.ID, Name: "박고객"})
	assert.ErrorIs(t, err, ErrAccessDenied)

	_, err = customers.CreateCustomer(f.store1, CustomerInput{StoreID: f.s1.ID})
	assert.ErrorIs(t, err, ErrInvalidInput)

	list, total, err := customers.ListCustomers(f.branch17, nil, "", 50, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, list, 1)
	assert.Equal(t, created.ID, list[0].ID)

	_, total, err = customers.ListCustomers(f.hq, nil, "9999", 50, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)

	_, _, err = customers.ListCustomers(f.branch17, &f.s4.ID, "", 50, 0)
	assert.ErrorIs(t, err, ErrAccessDenied)
}
