package order

import "order-service/internal/models"

// CheckTransition reports whether role may move an order into target.
// The table is keyed on (target, role) only; the current status is not consulted.
func CheckTransition(target models.OrderStatus, role models.Role) error {
	switch role {
	case models.RoleCashier:
		switch target {
		case models.StatusClosed:
			return nil
		case models.StatusPending, models.StatusInProgress, models.StatusCompleted:
			return models.NewIllegalTransition(target, role)
		}
	case models.RoleChef:
		switch target {
		case models.StatusInProgress, models.StatusCompleted:
			return nil
		case models.StatusPending, models.StatusClosed:
			return models.NewIllegalTransition(target, role)
		}
	case models.RoleAdmin, models.RoleOrderReceiver:
		return models.NewIllegalTransition(target, role)
	}
	return models.NewIllegalTransition(target, role)
}
