package order

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"order-service/internal/models"
)

func TestCheckTransition(t *testing.T) {
	tests := []struct {
		name    string
		target  models.OrderStatus
		role    models.Role
		wantErr bool
	}{
		{"cashier closes", models.StatusClosed, models.RoleCashier, false},
		{"cashier cannot start", models.StatusInProgress, models.RoleCashier, true},
		{"cashier cannot complete", models.StatusCompleted, models.RoleCashier, true},
		{"cashier cannot reopen", models.StatusPending, models.RoleCashier, true},
		{"chef starts", models.StatusInProgress, models.RoleChef, false},
		{"chef completes", models.StatusCompleted, models.RoleChef, false},
		{"chef cannot close", models.StatusClosed, models.RoleChef, true},
		{"chef cannot reset", models.StatusPending, models.RoleChef, true},
		{"admin cannot transition", models.StatusClosed, models.RoleAdmin, true},
		{"receiver cannot transition", models.StatusInProgress, models.RoleOrderReceiver, true},
		{"unknown role", models.StatusClosed, models.Role("GUEST"), true},
		{"unknown status", models.OrderStatus("REFUNDED"), models.RoleCashier, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckTransition(tt.target, tt.role)
			if tt.wantErr {
				assert.True(t, models.IsKind(err, models.KindIllegalTransition), "got %v", err)
				var domainErr *models.Error
				if assert.ErrorAs(t, err, &domainErr) {
					assert.Equal(t, 400, domainErr.Status)
				}
				return
			}
			assert.NoError(t, err)
		})
	}
}
