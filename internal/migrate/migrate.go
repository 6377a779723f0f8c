package migrate

import (
	"context"
	"fmt"
	"store-api/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type MigrateOptions struct {
	CreateExtensions       bool // pgcrypto
	CreateChecks           bool // CHECK-constraint для целостности
	CreateIndexes          bool // индексы и UNIQUE
	CreateFKsViaSQL        bool // FK через SQL (поверх GORM-constraint)
	CreateUpdatedAtTrigger bool // триггер обновления updated_at
}

func DefaultMigrateOptions() MigrateOptions {
	return MigrateOptions{
		CreateExtensions:       true,
		CreateChecks:           true,
		CreateIndexes:          true,
		CreateFKsViaSQL:        true,
		CreateUpdatedAtTrigger: true,
	}
}

type step struct {
	name string
	sql  string
}

func run(db *gorm.DB, log *zap.Logger, steps []step) error {
	for _, s := range steps {
		if err := db.Exec(s.sql).Error; err != nil {
			log.Error("Не удалось выполнить шаг миграции", zap.String("step", s.name), zap.Error(err))
			return err
		}
	}
	return nil
}

var checkSteps = []step{
	{"chk_products_stock_non_negative", `
ALTER TABLE products DROP CONSTRAINT IF EXISTS chk_products_stock_non_negative;
ALTER TABLE products ADD CONSTRAINT chk_products_stock_non_negative CHECK (stock >= 0);`},
	{"chk_products_price_non_negative", `
ALTER TABLE products DROP CONSTRAINT IF EXISTS chk_products_price_non_negative;
ALTER TABLE products ADD CONSTRAINT chk_products_price_non_negative CHECK (price >= 0);`},
	{"chk_cart_items_quantity_gt_zero", `
ALTER TABLE cart_items DROP CONSTRAINT IF EXISTS chk_cart_items_quantity_gt_zero;
ALTER TABLE cart_items ADD CONSTRAINT chk_cart_items_quantity_gt_zero CHECK (quantity > 0);`},
	{"chk_orders_status_allowed", `
ALTER TABLE orders DROP CONSTRAINT IF EXISTS chk_orders_status_allowed;
ALTER TABLE orders ADD CONSTRAINT chk_orders_status_allowed
  CHECK (status IN ('pending','shipped','delivered','cancelled'));`},
	{"chk_orders_currency_code_len", `
ALTER TABLE orders DROP CONSTRAINT IF EXISTS chk_orders_currency_code_len;
ALTER TABLE orders ADD CONSTRAINT chk_orders_currency_code_len CHECK (char_length(currency_code) = 3);`},
	{"chk_orders_total_non_negative", `
ALTER TABLE orders DROP CONSTRAINT IF EXISTS chk_orders_total_non_negative;
ALTER TABLE orders ADD CONSTRAINT chk_orders_total_non_negative CHECK (total_amount >= 0);`},
	{"chk_order_items_quantity_gt_zero", `
ALTER TABLE order_items DROP CONSTRAINT IF EXISTS chk_order_items_quantity_gt_zero;
ALTER TABLE order_items ADD CONSTRAINT chk_order_items_quantity_gt_zero CHECK (quantity > 0);`},
	{"chk_order_items_price_non_negative", `
ALTER TABLE order_items DROP CONSTRAINT IF EXISTS chk_order_items_price_non_negative;
ALTER TABLE order_items ADD CONSTRAINT chk_order_items_price_non_negative CHECK (price >= 0);`},
	{"chk_users_role_allowed", `
ALTER TABLE users DROP CONSTRAINT IF EXISTS chk_users_role_allowed;
ALTER TABLE users ADD CONSTRAINT chk_users_role_allowed CHECK (role IN ('ROLE_CUSTOMER','ROLE_ADMIN'));`},
}

var indexSteps = []step{
	{"ux_users_email_lower", `CREATE UNIQUE INDEX IF NOT EXISTS ux_users_email_lower ON users (lower(email));`},
	{"ux_cart_items_cart_product", `CREATE UNIQUE INDEX IF NOT EXISTS ux_cart_items_cart_product ON cart_items (cart_id, product_id);`},
	{"ux_order_items_order_product", `CREATE UNIQUE INDEX IF NOT EXISTS ux_order_items_order_product ON order_items (order_id, product_id);`},
	{"ix_orders_user_created", `CREATE INDEX IF NOT EXISTS ix_orders_user_created ON orders (user_id, created_at DESC);`},
	{"ix_orders_status_created", `CREATE INDEX IF NOT EXISTS ix_orders_status_created ON orders (status, created_at DESC);`},
}

var fkSteps = []step{
	{"fk_carts_user", `
ALTER TABLE carts
  DROP CONSTRAINT IF EXISTS fk_carts_user,
  ADD CONSTRAINT fk_carts_user FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE;`},
	{"fk_cart_items_cart", `
ALTER TABLE cart_items
  DROP CONSTRAINT IF EXISTS fk_cart_items_cart,
  ADD CONSTRAINT fk_cart_items_cart FOREIGN KEY (cart_id) REFERENCES carts(id) ON DELETE CASCADE;`},
	{"fk_cart_items_product", `
ALTER TABLE cart_items
  DROP CONSTRAINT IF EXISTS fk_cart_items_product,
  ADD CONSTRAINT fk_cart_items_product FOREIGN KEY (product_id) REFERENCES products(id) ON DELETE CASCADE;`},
	{"fk_products_category", `
ALTER TABLE products
  DROP CONSTRAINT IF EXISTS fk_products_category,
  ADD CONSTRAINT fk_products_category FOREIGN KEY (category_id) REFERENCES categories(id) ON DELETE SET NULL;`},
	{"fk_order_items_order", `
ALTER TABLE order_items
  DROP CONSTRAINT IF EXISTS fk_order_items_order,
  ADD CONSTRAINT fk_order_items_order FOREIGN KEY (order_id) REFERENCES orders(id) ON DELETE CASCADE;`},
}

const updatedAtTrigger = `
CREATE OR REPLACE FUNCTION set_updated_at() RETURNS trigger AS $$
BEGIN NEW.updated_at = now(); RETURN NEW; END; $$ LANGUAGE plpgsql;

DROP TRIGGER IF EXISTS trg_%[1]s_updated ON %[1]s;
CREATE TRIGGER trg_%[1]s_updated
BEFORE UPDATE ON %[1]s
FOR EACH ROW EXECUTE FUNCTION set_updated_at();
`

func MigrateStoreDB(ctx context.Context, db *gorm.DB, log *zap.Logger, opt MigrateOptions) error {
	log.Info("Начало миграции базы данных магазина")
	db = db.WithContext(ctx)

	if opt.CreateExtensions {
		log.Info("Создание расширений PostgreSQL")
		if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS pgcrypto`).Error; err != nil {
			log.Error("Не удалось включить расширение pgcrypto", zap.Error(err))
			return err
		}
	}

	log.Info("Создание таблиц")
	if err := db.AutoMigrate(
		&models.User{},
		&models.Category{},
		&models.Product{},
		&models.Cart{},
		&models.CartItem{},
		&models.Order{},
		&models.OrderItem{},
		&models.ProcessedPaymentIntent{},
	); err != nil {
		log.Error("Не удалось создать таблицы", zap.Error(err))
		return err
	}

	if opt.CreateUpdatedAtTrigger {
		log.Info("Создание триггеров updated_at")
		for _, table := range []string{"users", "products", "carts", "cart_items", "orders"} {
			if err := run(db, log, []step{{"trg_" + table + "_updated", fmt.Sprintf(updatedAtTrigger, table)}}); err != nil {
				return err
			}
		}
	}

	if opt.CreateChecks {
		log.Info("Создание CHECK-ограничений")
		if err := run(db, log, checkSteps); err != nil {
			return err
		}
	}

	if opt.CreateIndexes {
		log.Info("Создание индексов")
		if err := run(db, log, indexSteps); err != nil {
			return err
		}
	}

	if opt.CreateFKsViaSQL {
		log.Info("Создание внешних ключей")
		if err := run(db, log, fkSteps); err != nil {
			return err
		}
	}

	log.Info("Миграция базы данных магазина успешно завершена")
	return nil
}
