// Package repository содержит реализацию доступа к данным в PostgreSQL.
package repository

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/avetikov/bookstore-system/internal/model"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrUserExists возвращается при попытке создать пользователя с уже существующим логином.
var (
	ErrUserExists = errors.New("user already exists")
	// ErrUserNotFound возвращается, если пользователь не найден.
	ErrUserNotFound = errors.New("user not found")
	// ErrBookNotFound возвращается, если книга не найдена в каталоге.
	ErrBookNotFound = errors.New("book not found")
	// ErrCartItemNotFound возвращается, если позиция отсутствует в корзине.
	ErrCartItemNotFound = errors.New("cart item not found")
	// ErrOrderNotFound возвращается, если заказ не найден.
	ErrOrderNotFound = errors.New("order not found")
)

// PostgresRepository предоставляет доступ к хранилищу данных в PostgreSQL.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository создаёт новый репозиторий и инициализирует схему БД через миграции.
func NewPostgresRepository(dsn string) (*PostgresRepository, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	r := &PostgresRepository{pool: pool}

	if err := r.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return r, nil
}

func (r *PostgresRepository) runMigrations(ctx context.Context) error {
	db := stdlib.OpenDBFromPool(r.pool)
	defer db.Close()

	goose.SetBaseFS(migrationsFS)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

// Close закрывает пул соединений с БД.
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

// CreateUser создаёт нового пользователя.
func (r *PostgresRepository) CreateUser(ctx context.Context, login string, passwordHash []byte) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO users (login, password_hash) VALUES ($1, $2) RETURNING id`,
		login, passwordHash,
	).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return 0, fmt.Errorf("%w: %s", ErrUserExists, login)
		}
		return 0, fmt.Errorf("create user: %w", err)
	}
	return id, nil
}

// GetUserByLogin возвращает пользователя по логину.
func (r *PostgresRepository) GetUserByLogin(ctx context.Context, login string) (*model.User, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, login, password_hash, created_at FROM users WHERE login = $1`,
		login,
	)

	var u model.User
	err := row.Scan(&u.ID, &u.Login, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	return &u, nil
}

// CreateBook добавляет книгу в каталог и возвращает её идентификатор.
func (r *PostgresRepository) CreateBook(ctx context.Context, b *model.Book) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO books (title, author, price_cents, image, rating, category, description)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id`,
		b.Title, b.Author, b.PriceCents, b.Image, b.Rating, b.Category, b.Description,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create book: %w", err)
	}
	return id, nil
}

// GetBookByID возвращает книгу каталога по идентификатору.
func (r *PostgresRepository) GetBookByID(ctx context.Context, id int64) (*model.Book, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, title, author, price_cents, image, rating, category, description, created_at
		 FROM books WHERE id = $1`,
		id,
	)

	var b model.Book
	err := row.Scan(&b.ID, &b.Title, &b.Author, &b.PriceCents, &b.Image, &b.Rating,
		&b.Category, &b.Description, &b.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBookNotFound
		}
		return nil, fmt.Errorf("get book: %w", err)
	}
	b.Price = float64(b.PriceCents) / 100

	return &b, nil
}

// ListBooks возвращает каталог книг, новые первыми.
func (r *PostgresRepository) ListBooks(ctx context.Context) ([]model.Book, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, title, author, price_cents, image, rating, category, description, created_at
		 FROM books
		 ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("select books: %w", err)
	}
	defer rows.Close()

	var books []model.Book
	for rows.Next() {
		var b model.Book
		if err := rows.Scan(&b.ID, &b.Title, &b.Author, &b.PriceCents, &b.Image, &b.Rating,
			&b.Category, &b.Description, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan book: %w", err)
		}
		b.Price = float64(b.PriceCents) / 100
		books = append(books, b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return books, nil
}

// DeleteBook удаляет книгу из каталога.
func (r *PostgresRepository) DeleteBook(ctx context.Context, id int64) error {
	cmdTag, err := r.pool.Exec(ctx, `DELETE FROM books WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete book: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrBookNotFound
	}
	return nil
}

// GetCart возвращает позиции корзины пользователя вместе с данными книг.
func (r *PostgresRepository) GetCart(ctx context.Context, userID int64) ([]model.CartItem, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT b.id, b.title, b.author, b.price_cents, b.image, b.rating, b.category, b.description, b.created_at,
		        c.quantity
		 FROM cart_items c
		 JOIN books b ON b.id = c.book_id
		 WHERE c.user_id = $1
		 ORDER BY b.title`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("select cart: %w", err)
	}
	defer rows.Close()

	var items []model.CartItem
	for rows.Next() {
		var it model.CartItem
		if err := rows.Scan(&it.Book.ID, &it.Book.Title, &it.Book.Author, &it.Book.PriceCents,
			&it.Book.Image, &it.Book.Rating, &it.Book.Category, &it.Book.Description,
			&it.Book.CreatedAt, &it.Quantity); err != nil {
			return nil, fmt.Errorf("scan cart item: %w", err)
		}
		it.Book.Price = float64(it.Book.PriceCents) / 100
		items = append(items, it)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return items, nil
}

// AddCartItem добавляет книгу в корзину, суммируя количество с уже имеющимся.
func (r *PostgresRepository) AddCartItem(ctx context.Context, userID, bookID int64, quantity int) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO cart_items (user_id, book_id, quantity) VALUES ($1, $2, $3)
		 ON CONFLICT (user_id, book_id) DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity`,
		userID, bookID, quantity,
	)
	if err != nil {
		return fmt.Errorf("add cart item: %w", err)
	}
	return nil
}

// SetCartItemQuantity устанавливает количество для позиции корзины.
func (r *PostgresRepository) SetCartItemQuantity(ctx context.Context, userID, bookID int64, quantity int) error {
	cmdTag, err := r.pool.Exec(ctx,
		`UPDATE cart_items SET quantity = $3 WHERE user_id = $1 AND book_id = $2`,
		userID, bookID, quantity,
	)
	if err != nil {
		return fmt.Errorf("update cart item: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrCartItemNotFound
	}
	return nil
}

// RemoveCartItem удаляет позицию из корзины пользователя.
func (r *PostgresRepository) RemoveCartItem(ctx context.Context, userID, bookID int64) error {
	cmdTag, err := r.pool.Exec(ctx,
		`DELETE FROM cart_items WHERE user_id = $1 AND book_id = $2`,
		userID, bookID,
	)
	if err != nil {
		return fmt.Errorf("remove cart item: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrCartItemNotFound
	}
	return nil
}

// ClearCart удаляет все позиции корзины пользователя.
func (r *PostgresRepository) ClearCart(ctx context.Context, userID int64) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM cart_items WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}
