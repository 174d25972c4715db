package users

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/mercerie-backend/pkg/config"
	"github.com/angelmondragon/mercerie-backend/pkg/db/dbtest"
	"github.com/angelmondragon/mercerie-backend/pkg/logger"
)

var testPasswordConfig = config.PasswordConfig{
	ArgonMemoryKB:    8,
	ArgonTime:        1,
	ArgonParallelism: 1,
	ArgonSaltLen:     8,
	ArgonKeyLen:      16,
}

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	conn := dbtest.Open(t)
	svc, err := NewService(ServiceParams{
		Clients:   NewClientRepository(conn),
		Employees: NewEmployeeRepository(conn),
		Patrons:   NewPatronRepository(conn),
		Password:  testPasswordConfig,
		Logger:    logger.Nop(),
	})
	require.NoError(t, err)
	return svc, conn
}
