package engraving

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/xinzuo/storefront-services/internal/storefront"
	"github.com/xinzuo/storefront-services/pkg/logging"
)

// RefreshSections are the theme sections re-rendered after a cart change.
var RefreshSections = []string{"cart-drawer", "cart-icon-bubble"}

// CartAPI is the subset of the storefront cart client the flows use.
type CartAPI interface {
	Add(ctx context.Context, item storefront.AddItem) error
	Change(ctx context.Context, key string, quantity int) (*storefront.Cart, error)
	Update(ctx context.Context, updates map[int64]int) (*storefront.Cart, error)
	Cart(ctx context.Context) (*storefront.Cart, error)
	Sections(ctx context.Context, names ...string) (map[string]string, error)
}

// CartError wraps a failed cart API step.
type CartError struct {
	Step string
	Err  error
}

func (e *CartError) Error() string {
	return fmt.Sprintf("engraving: %s: %v", e.Step, e.Err)
}

func (e *CartError) Unwrap() error { return e.Err }

// LineItemRequest engraves an existing cart line.
type LineItemRequest struct {
	ItemKey   string    `json:"itemKey"`
	VariantID int64     `json:"variantId"`
	Quantity  int       `json:"quantity"`
	Engraving Selection `json:"engraving"`
}

// ProductAddRequest adds a product from the product page, optionally
// engraved. KnifeCount is the number of knives in one unit of the product.
type ProductAddRequest struct {
	VariantID  int64      `json:"variantId"`
	Quantity   int        `json:"quantity"`
	KnifeCount int        `json:"knifeCount"`
	Engraving  *Selection `json:"engraving,omitempty"`
}

// Refresh is the re-rendered cart UI after a change.
type Refresh struct {
	ItemCount int               `json:"itemCount"`
	Sections  map[string]string `json:"sections"`
}

// AddResult is the outcome of AddToCart.
type AddResult struct {
	ItemCount int               `json:"itemCount"`
	FeeAdded  int               `json:"feeAdded"`
	Sections  map[string]string `json:"sections"`
}

// Reconciliation reports required fee counts and the corrections applied.
type Reconciliation struct {
	RequiredOneLine  int           `json:"requiredOneLine"`
	RequiredTwoLines int           `json:"requiredTwoLines"`
	Updates          map[int64]int `json:"updates,omitempty"`
}

// Service runs the engraving cart flows.
type Service struct {
	cart   CartAPI
	fees   FeeVariants
	logger *logging.Logger
}

func NewService(cart CartAPI, fees FeeVariants, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	if fees.OneLine == 0 {
		fees.OneLine = DefaultFeeVariants.OneLine
	}
	if fees.TwoLines == 0 {
		fees.TwoLines = DefaultFeeVariants.TwoLines
	}
	return &Service{cart: cart, fees: fees, logger: logger}
}

// Apply replaces the cart line with an engraved copy, adds one fee per unit
// and returns the refreshed cart UI.
func (s *Service) Apply(ctx context.Context, req LineItemRequest) (*Refresh, error) {
	sel := req.Engraving.Normalize()
	if err := sel.Validate(); err != nil {
		return nil, err
	}
	if req.ItemKey == "" {
		return nil, &ValidationError{Field: "itemKey", Message: "line item key is required"}
	}
	if req.VariantID <= 0 {
		return nil, &ValidationError{Field: "variantId", Message: "variant id is required"}
	}
	quantity := req.Quantity
	if quantity <= 0 {
		quantity = 1
	}

	if _, err := s.cart.Change(ctx, req.ItemKey, 0); err != nil {
		return nil, &CartError{Step: "remove line", Err: err}
	}
	if err := s.cart.Add(ctx, storefront.AddItem{
		ID:         req.VariantID,
		Quantity:   quantity,
		Properties: sel.Properties(1),
	}); err != nil {
		return nil, &CartError{Step: "add engraved line", Err: err}
	}
	if err := s.cart.Add(ctx, storefront.AddItem{ID: s.fees.For(sel), Quantity: quantity}); err != nil {
		return nil, &CartError{Step: "add fee", Err: err}
	}

	s.logger.Info("engraving applied", "variant_id", req.VariantID, "quantity", quantity, "two_lines", sel.TwoLines())
	return s.Refresh(ctx)
}

// AddToCart adds a product with its knife count and optional engraving,
// charging one fee per knife, and returns the refreshed cart UI.
func (s *Service) AddToCart(ctx context.Context, req ProductAddRequest) (*AddResult, error) {
	if req.VariantID <= 0 {
		return nil, &ValidationError{Field: "variantId", Message: "variant id is required"}
	}
	quantity := req.Quantity
	if quantity <= 0 {
		quantity = 1
	}
	knives := req.KnifeCount
	if knives <= 0 {
		knives = 1
	}

	props := storefront.Properties{PropKnifeQuantity: knives}
	var sel Selection
	engraved := req.Engraving != nil
	if engraved {
		sel = req.Engraving.Normalize()
		if err := sel.Validate(); err != nil {
			return nil, err
		}
		props = sel.Properties(knives)
	}

	if err := s.cart.Add(ctx, storefront.AddItem{ID: req.VariantID, Quantity: quantity, Properties: props}); err != nil {
		return nil, &CartError{Step: "add product", Err: err}
	}

	result := &AddResult{}
	if engraved {
		result.FeeAdded = quantity * knives
		if err := s.cart.Add(ctx, storefront.AddItem{ID: s.fees.For(sel), Quantity: result.FeeAdded}); err != nil {
			return nil, &CartError{Step: "add fee", Err: err}
		}
	}

	refresh, err := s.Refresh(ctx)
	if err != nil {
		return nil, err
	}
	result.ItemCount = refresh.ItemCount
	result.Sections = refresh.Sections
	return result, nil
}

// ReconcileFees lowers fee quantities that exceed what the engraved lines
// require, e.g. after a customer removed an engraved knife. Fees are never
// raised here.
func (s *Service) ReconcileFees(ctx context.Context) (*Reconciliation, error) {
	cart, err := s.cart.Cart(ctx)
	if err != nil {
		return nil, &CartError{Step: "read cart", Err: err}
	}

	rec := &Reconciliation{}
	for _, item := range cart.Items {
		if item.Properties.String(PropText) == "" {
			continue
		}
		knives := item.Properties.Int(PropKnifeQuantity, 1)
		if knives <= 0 {
			knives = 1
		}
		required := item.Quantity * knives
		if item.Properties.String(PropText2) != "" {
			rec.RequiredTwoLines += required
		} else {
			rec.RequiredOneLine += required
		}
	}

	updates := map[int64]int{}
	if current := firstLineQuantity(cart, s.fees.OneLine); current > rec.RequiredOneLine {
		updates[s.fees.OneLine] = rec.RequiredOneLine
	}
	if current := firstLineQuantity(cart, s.fees.TwoLines); current > rec.RequiredTwoLines {
		updates[s.fees.TwoLines] = rec.RequiredTwoLines
	}
	if len(updates) == 0 {
		return rec, nil
	}

	if _, err := s.cart.Update(ctx, updates); err != nil {
		return nil, &CartError{Step: "update fees", Err: err}
	}
	rec.Updates = updates
	s.logger.Info("engraving fees reconciled", "updates", len(updates))
	return rec, nil
}

// Refresh fetches the cart sections and item count concurrently.
func (s *Service) Refresh(ctx context.Context) (*Refresh, error) {
	var (
		sections map[string]string
		cart     *storefront.Cart
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		sections, err = s.cart.Sections(gctx, RefreshSections...)
		return err
	})
	g.Go(func() error {
		var err error
		cart, err = s.cart.Cart(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, &CartError{Step: "refresh", Err: err}
	}
	return &Refresh{ItemCount: cart.ItemCount, Sections: sections}, nil
}

// firstLineQuantity mirrors the theme, which updates by variant and so only
// ever sees the first fee line for it.
func firstLineQuantity(cart *storefront.Cart, variantID int64) int {
	for _, item := range cart.Items {
		if item.VariantID == variantID {
			return item.Quantity
		}
	}
	return 0
}

// IsValidation reports whether err is a user-correctable selection error.
func IsValidation(err error) bool {
	var verr *ValidationError
	return errors.As(err, &verr)
}
