// Package service реализует бизнес-логику книжного магазина.
package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/avetikov/bookstore-system/internal/gateway"
	"github.com/avetikov/bookstore-system/internal/model"
	"github.com/avetikov/bookstore-system/internal/repository"
)

// ErrInvalidCredentials возвращается при неверном логине или пароле.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrEmptyItems возвращается при попытке оформить заказ без позиций.
	ErrEmptyItems = errors.New("order items are empty")
	// ErrInvalidQuantity возвращается для позиции с неположительным количеством.
	ErrInvalidQuantity = errors.New("item quantity must be at least 1")
	// ErrInvalidPaymentMethod возвращается для неизвестного способа оплаты.
	ErrInvalidPaymentMethod = errors.New("invalid payment method")
	// ErrMissingPaymentFields возвращается, если в подтверждении оплаты заполнены не все поля.
	ErrMissingPaymentFields = errors.New("required payment fields missing")
	// ErrInvalidSignature возвращается при несовпадении подписи платежа.
	ErrInvalidSignature = errors.New("invalid payment signature")
	// ErrPaymentNotCompleted возвращается, если платёж не захвачен на стороне шлюза.
	ErrPaymentNotCompleted = errors.New("payment not completed")
)

// Repository описывает контракт доступа к данным, используемый сервисом.
type Repository interface {
	Close() error
	CreateUser(ctx context.Context, login string, passwordHash []byte) (int64, error)
	GetUserByLogin(ctx context.Context, login string) (*model.User, error)
	CreateBook(ctx context.Context, b *model.Book) (int64, error)
	GetBookByID(ctx context.Context, id int64) (*model.Book, error)
	ListBooks(ctx context.Context) ([]model.Book, error)
	DeleteBook(ctx context.Context, id int64) error
	GetCart(ctx context.Context, userID int64) ([]model.CartItem, error)
	AddCartItem(ctx context.Context, userID, bookID int64, quantity int) error
	SetCartItemQuantity(ctx context.Context, userID, bookID int64, quantity int) error
	RemoveCartItem(ctx context.Context, userID, bookID int64) error
	ClearCart(ctx context.Context, userID int64) error
	CreateOrder(ctx context.Context, o *model.Order) error
	GetOrderByID(ctx context.Context, id int64) (*model.Order, error)
	GetOrdersByUser(ctx context.Context, userID int64) ([]model.Order, error)
	ListOrders(ctx context.Context, search string, status model.OrderStatus) ([]model.Order, error)
	GetOrdersForSync(ctx context.Context, limit int) ([]string, error)
	MarkOrderPaid(ctx context.Context, gatewayOrderID, gatewayPaymentID string, paidAt time.Time) (*model.Order, bool, error)
	UpdateOrder(ctx context.Context, id int64, patch repository.OrderPatch) (*model.Order, error)
	DeleteOrder(ctx context.Context, id int64) error
}

// Gateway описывает контракт платёжного шлюза, используемый сервисом.
type Gateway interface {
	CreateOrder(ctx context.Context, amountCents int64, currency, receipt string) (*gateway.Order, error)
	FetchPayment(ctx context.Context, paymentID string) (*gateway.Payment, error)
	FetchOrderPayments(ctx context.Context, gatewayOrderID string) ([]gateway.Payment, error)
	VerifySignature(gatewayOrderID, gatewayPaymentID, signature string) bool
	KeyID() string
}

// Settings содержит параметры ценообразования и синхронизации платежей.
// Одни и те же налоговая ставка и стоимость доставки применяются и к
// предварительному расчёту корзины, и к итоговой сумме заказа.
type Settings struct {
	TaxRate       float64
	ShippingCents int64
	Currency      string
	SyncInterval  time.Duration
}

// Service содержит бизнес-логику книжного магазина.
type Service struct {
	repo     Repository
	gateway  Gateway
	logger   *zap.Logger
	settings Settings
}

// NewService создаёт новый сервис с указанным репозиторием и платёжным шлюзом.
func NewService(repo Repository, gw Gateway, logger *zap.Logger, settings Settings) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		repo:     repo,
		gateway:  gw,
		logger:   logger,
		settings: settings,
	}
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	if s.repo != nil {
		return s.repo.Close()
	}
	return nil
}

// RegisterUser регистрирует нового пользователя.
func (s *Service) RegisterUser(ctx context.Context, login, password string) (int64, error) {
	hashed := hashPassword(login, password)
	id, err := s.repo.CreateUser(ctx, login, hashed)
	if err != nil {
		if errors.Is(err, repository.ErrUserExists) {
			return 0, repository.ErrUserExists
		}
		return 0, err
	}
	return id, nil
}

// AuthenticateUser проверяет логин и пароль пользователя и возвращает его идентификатор.
func (s *Service) AuthenticateUser(ctx context.Context, login, password string) (int64, error) {
	u, err := s.repo.GetUserByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return 0, ErrInvalidCredentials
		}
		return 0, err
	}

	hashed := hashPassword(login, password)
	if hex.EncodeToString(hashed) != hex.EncodeToString(u.PasswordHash) {
		return 0, ErrInvalidCredentials
	}

	return u.ID, nil
}

func hashPassword(login, password string) []byte {
	sum := sha256.Sum256([]byte(login + ":" + password))
	return sum[:]
}
