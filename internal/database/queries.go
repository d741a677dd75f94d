package database

// Menu queries
const (
	FindActiveMenuItemsSQL = `
		SELECT id, coffee_shop_id, name, description, price::float8, deleted
		FROM menu_item
		WHERE id = ANY($1) AND coffee_shop_id = $2 AND deleted = FALSE`
)

// Order queries. Orders are tenant scoped through their lines: an order belongs
// to the coffee shop whose menu items it contains.
const (
	InsertOrderSQL = `
		INSERT INTO orders (issue_date, customer_id, issuer_id, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id`

	InsertOrderItemSQL = `
		INSERT INTO order_items (order_id, item_id, quantity)
		VALUES ($1, $2, $3)`

	GetOrderSQL = `
		SELECT o.id, o.issue_date, o.customer_id, o.issuer_id, o.assigner_id, o.status
		FROM orders o
		WHERE o.id = $1 AND EXISTS (
			SELECT 1 FROM order_items oi
			JOIN menu_item mi ON mi.id = oi.item_id
			WHERE oi.order_id = o.id AND mi.coffee_shop_id = $2
		)`

	GetOrderLinesSQL = `
		SELECT order_id, item_id, quantity
		FROM order_items
		WHERE order_id = ANY($1)
		ORDER BY order_id, id`

	ListOrdersSQL = `
		SELECT o.id, o.issue_date, o.customer_id, o.issuer_id, o.assigner_id, o.status
		FROM orders o
		WHERE EXISTS (
			SELECT 1 FROM order_items oi
			JOIN menu_item mi ON mi.id = oi.item_id
			WHERE oi.order_id = o.id AND mi.coffee_shop_id = $1
		)
		AND (cardinality($2::text[]) = 0 OR o.status = ANY($2::text[]))
		ORDER BY o.id DESC
		LIMIT $3 OFFSET $4`

	CountOrdersSQL = `
		SELECT COUNT(*)
		FROM orders o
		WHERE EXISTS (
			SELECT 1 FROM order_items oi
			JOIN menu_item mi ON mi.id = oi.item_id
			WHERE oi.order_id = o.id AND mi.coffee_shop_id = $1
		)
		AND (cardinality($2::text[]) = 0 OR o.status = ANY($2::text[]))`

	UpdateOrderStatusSQL = `
		UPDATE orders o SET status = $1
		WHERE o.id = $2 AND EXISTS (
			SELECT 1 FROM order_items oi
			JOIN menu_item mi ON mi.id = oi.item_id
			WHERE oi.order_id = o.id AND mi.coffee_shop_id = $3
		)`

	UpdateOrderAssignerSQL = `
		UPDATE orders o SET assigner_id = $1
		WHERE o.id = $2 AND EXISTS (
			SELECT 1 FROM order_items oi
			JOIN menu_item mi ON mi.id = oi.item_id
			WHERE oi.order_id = o.id AND mi.coffee_shop_id = $3
		)`
)

// Report queries. The ORDER BY clause is appended by the caller from a fixed
// set of column names.
const (
	CustomersOrdersReportSQL = `
		SELECT o.customer_id,
			COUNT(DISTINCT o.id) AS total_orders,
			COALESCE(SUM(oi.quantity * mi.price), 0)::float8 AS total_paid
		FROM orders o
		JOIN order_items oi ON oi.order_id = o.id
		JOIN menu_item mi ON mi.id = oi.item_id
		WHERE mi.coffee_shop_id = $1 AND o.issue_date >= $2 AND o.issue_date < $3
		GROUP BY o.customer_id`

	ChefsOrdersReportSQL = `
		SELECT o.assigner_id AS chef_id,
			COUNT(DISTINCT o.id) AS served_orders
		FROM orders o
		JOIN order_items oi ON oi.order_id = o.id
		JOIN menu_item mi ON mi.id = oi.item_id
		WHERE mi.coffee_shop_id = $1 AND o.issue_date >= $2 AND o.issue_date < $3
			AND o.assigner_id IS NOT NULL
		GROUP BY o.assigner_id`

	IssuersOrdersReportSQL = `
		SELECT o.issuer_id,
			COUNT(DISTINCT o.id) AS issued_orders
		FROM orders o
		JOIN order_items oi ON oi.order_id = o.id
		JOIN menu_item mi ON mi.id = oi.item_id
		WHERE mi.coffee_shop_id = $1 AND o.issue_date >= $2 AND o.issue_date < $3
		GROUP BY o.issuer_id`
)
