package database

// Catalog queries
const (
	InsertFoodItemSQL = `
		INSERT INTO food_items (name, description, category, unit_price, stock, image, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`

	foodItemColumns = `id, name, description, category, unit_price, stock, image, active, created_at`

	GetFoodItemSQL = `SELECT ` + foodItemColumns + ` FROM food_items WHERE id = $1`

	LockFoodItemsSQL = `
		SELECT ` + foodItemColumns + ` FROM food_items
		WHERE id = ANY($1)
		ORDER BY id
		FOR UPDATE`

	ListFoodItemsSQL = `
		SELECT ` + foodItemColumns + ` FROM food_items
		WHERE active OR NOT $1
		ORDER BY id`

	UpdateFoodItemSQL = `
		UPDATE food_items
		SET name = $2, description = $3, category = $4, unit_price = $5, stock = $6, image = $7, active = $8
		WHERE id = $1`

	DecrementStockSQL = `UPDATE food_items SET stock = stock - $2 WHERE id = $1`

	DeleteFoodItemSQL = `DELETE FROM food_items WHERE id = $1`
)

// Customer and cart queries
const (
	InsertCustomerSQL = `
		INSERT INTO customers (username, email, first_name, last_name, phone, address)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	InsertCartSQL = `INSERT INTO carts (customer_id) VALUES ($1)`

	customerColumns = `id, username, email, first_name, last_name, phone, address, purchases, created_at`

	GetCustomerSQL  = `SELECT ` + customerColumns + ` FROM customers WHERE id = $1`
	LockCustomerSQL = `SELECT ` + customerColumns + ` FROM customers WHERE id = $1 FOR UPDATE`

	IncrementPurchasesSQL = `UPDATE customers SET purchases = purchases + 1 WHERE id = $1 RETURNING purchases`

	DeleteCustomerSQL = `DELETE FROM customers WHERE id = $1`

	CartExistsSQL = `SELECT EXISTS (SELECT 1 FROM carts WHERE customer_id = $1)`

	GetCartLinesSQL = `
		SELECT customer_id, food_item_id, quantity FROM cart_lines
		WHERE customer_id = $1
		ORDER BY food_item_id`

	AddCartLineSQL = `
		INSERT INTO cart_lines (customer_id, food_item_id, quantity)
		VALUES ($1, $2, $3)
		ON CONFLICT (customer_id, food_item_id) DO UPDATE SET quantity = cart_lines.quantity + EXCLUDED.quantity`

	RemoveCartLineSQL = `DELETE FROM cart_lines WHERE customer_id = $1 AND food_item_id = $2`

	ClearCartSQL = `DELETE FROM cart_lines WHERE customer_id = $1`
)

// Loyalty queries
const (
	InsertGrantSQL = `
		INSERT INTO loyalty_points (customer_id, points, remaining, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id`

	grantColumns = `id, customer_id, points, remaining, created_at`

	GetGrantsSQL = `
		SELECT ` + grantColumns + ` FROM loyalty_points
		WHERE customer_id = $1
		ORDER BY created_at, id`

	LockGrantsSQL = GetGrantsSQL + ` FOR UPDATE`

	UpdateGrantRemainingSQL = `UPDATE loyalty_points SET remaining = $2 WHERE id = $1`

	DeleteGrantsSQL = `DELETE FROM loyalty_points WHERE customer_id = $1`

	InsertCouponSQL = `
		INSERT INTO coupons (customer_id, discount_amount, created_at, expires_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id`

	couponColumns = `id, customer_id, discount_amount, created_at, expires_at`

	LockCouponSQL = `SELECT ` + couponColumns + ` FROM coupons WHERE id = $1 FOR UPDATE`

	GetCouponsSQL = `SELECT ` + couponColumns + ` FROM coupons WHERE customer_id = $1 ORDER BY id`

	DeleteCouponSQL = `DELETE FROM coupons WHERE id = $1`
)

// Order queries
const (
	InsertOrderSQL = `
		INSERT INTO orders (created_at, description, address, status, customer_id, order_manager_id,
			order_dispatcher_id, delivery_person_id, customer_name, customer_email, customer_phone, total_price)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id`

	InsertOrderLineSQL = `
		INSERT INTO order_lines (order_id, food_item_id, name, unit_price, description, image, quantity)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`

	orderColumns = `id, created_at, description, address, status, customer_id, order_manager_id,
		order_dispatcher_id, delivery_person_id, customer_name, customer_email, customer_phone, total_price`

	GetOrderSQL  = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	LockOrderSQL = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1 FOR UPDATE`

	GetOrderLinesSQL = `
		SELECT id, order_id, food_item_id, name, unit_price, description, image, quantity
		FROM order_lines
		WHERE order_id = ANY($1)
		ORDER BY order_id, id`

	// ListOrdersSQL filters by status, customer and courier; NULL arguments
	// do not filter
	ListOrdersSQL = `
		SELECT ` + orderColumns + `, COUNT(*) OVER() AS total_count
		FROM orders
		WHERE ($1::text IS NULL OR status = $1)
		  AND ($2::bigint IS NULL OR customer_id = $2)
		  AND ($3::bigint IS NULL OR delivery_person_id = $3)
		ORDER BY created_at DESC, id DESC
		LIMIT $4 OFFSET $5`

	UpdateOrderSQL = `
		UPDATE orders
		SET status = $2, order_manager_id = $3, order_dispatcher_id = $4, delivery_person_id = $5
		WHERE id = $1`

	DeleteOrderSQL = `DELETE FROM orders WHERE id = $1`

	CountOpenOrdersSQL = `
		SELECT COUNT(*) FROM orders
		WHERE customer_id = $1 AND status NOT IN ('Entregado', 'Cancelado')`

	InsertOrderStatusLogSQL = `
		INSERT INTO order_status_log (order_id, from_status, to_status, changed_by, changed_at, notes)
		VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6)
		RETURNING id`

	GetOrderStatusHistorySQL = `
		SELECT id, order_id, COALESCE(from_status, ''), to_status, changed_by, changed_at, notes
		FROM order_status_log
		WHERE order_id = $1
		ORDER BY changed_at, id`
)

// Staff queries. The table name is chosen from a fixed set, never from input.
const (
	InsertStaffSQL = `INSERT INTO %s (username, email) VALUES ($1, $2) RETURNING id, created_at`
	GetStaffSQL    = `SELECT id, username, email, created_at FROM %s WHERE id = $1`
	DeleteStaffSQL = `DELETE FROM %s WHERE id = $1`
)

// Delivery person queries
const (
	InsertCourierSQL = `
		INSERT INTO delivery_persons (username, email, is_online)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`

	courierWithLoad = `
		SELECT d.id, d.username, d.email, d.is_online, d.created_at,
			(SELECT COUNT(*) FROM orders o
			 WHERE o.delivery_person_id = d.id AND o.status NOT IN ('Entregado', 'Cancelado')) AS active_orders
		FROM delivery_persons d`

	GetCourierSQL = courierWithLoad + ` WHERE d.id = $1`

	LockCourierSQL = `SELECT id FROM delivery_persons WHERE id = $1 FOR UPDATE`

	SetCourierOnlineSQL = `UPDATE delivery_persons SET is_online = $2 WHERE id = $1`

	ListCouriersSQL = `
		SELECT c.*, COUNT(*) OVER() AS total_count FROM (` + courierWithLoad + `
			WHERE ($1::boolean IS NULL OR d.is_online = $1)
		) c
		ORDER BY c.id
		LIMIT $2 OFFSET $3`

	LockOnlineCouriersSQL = `SELECT id FROM delivery_persons WHERE is_online ORDER BY id FOR UPDATE`

	OnlineCouriersByLoadSQL = courierWithLoad + `
		WHERE d.is_online
		ORDER BY active_orders, d.id`

	DeleteCourierSQL = `DELETE FROM delivery_persons WHERE id = $1`
)
