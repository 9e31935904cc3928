package sales

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"pharmaerp/internal/core/apperror"
	"pharmaerp/internal/core/id"
	"pharmaerp/internal/core/identity"
	"pharmaerp/internal/core/numerator"
	"pharmaerp/internal/core/tx"
	"pharmaerp/internal/core/types"
	"pharmaerp/internal/domain"
	"pharmaerp/internal/domain/audit"
	"pharmaerp/internal/domain/catalog"
	"pharmaerp/internal/domain/inventory"
	"pharmaerp/pkg/logger"
)

var tracer = otel.Tracer("pharmaerp/sales")

// ServiceConfig wires the posting engine.
type ServiceConfig struct {
	Repo      Repository
	TxManager tx.Manager
	Catalog   Catalog
	Inventory Inventory
	Allocator BatchAllocator
	Numerator numerator.Generator

	// Optional collaborators
	Compliance ComplianceHooks
	Observer   SaleObserver
	Audit      AuditRecorder

	// Now defaults to time.Now
	Now func() time.Time
}

// Service provides business operations for sales invoices.
type Service struct {
	repo       Repository
	txManager  tx.Manager
	catalog    Catalog
	inventory  Inventory
	allocator  BatchAllocator
	numerator  numerator.Generator
	compliance ComplianceHooks
	observer   SaleObserver
	audit      AuditRecorder
	now        func() time.Time
	hooks      *domain.HookRegistry[*Invoice]
}

// NewService creates a new sales service.
func NewService(cfg ServiceConfig) *Service {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		repo:       cfg.Repo,
		txManager:  cfg.TxManager,
		catalog:    cfg.Catalog,
		inventory:  cfg.Inventory,
		allocator:  cfg.Allocator,
		numerator:  cfg.Numerator,
		compliance: cfg.Compliance,
		observer:   cfg.Observer,
		audit:      cfg.Audit,
		now:        now,
		hooks:      domain.NewHookRegistry[*Invoice](),
	}
}

// Hooks returns the hook registry for registering callbacks.
func (s *Service) Hooks() *domain.HookRegistry[*Invoice] {
	return s.hooks
}

// PostInvoice turns a DRAFT invoice into a POSTED one and deducts its stock.
// Posting an already POSTED invoice returns it unchanged.
func (s *Service) PostInvoice(ctx context.Context, actor *identity.Actor, invoiceID id.ID) (*Result, error) {
	ctx, span := tracer.Start(ctx, "sales.PostInvoice",
		trace.WithAttributes(attribute.String("invoice.id", invoiceID.String())))
	defer span.End()

	var (
		inv     *Invoice
		before  map[string]any
		sale    *PostedSale
		already bool
	)
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		locked, err := s.repo.GetForUpdateNoWait(ctx, invoiceID)
		if err != nil {
			return err
		}
		inv = locked

		if inv.Status == StatusPosted {
			already = true
			return nil
		}
		if inv.Status != StatusDraft {
			return inv.transitionError(StatusPosted)
		}

		lines, err := s.repo.GetLines(ctx, invoiceID)
		if err != nil {
			return fmt.Errorf("get lines: %w", err)
		}
		inv.Lines = lines
		before = inv.Snapshot()

		sale, err = s.post(ctx, actor, inv)
		return err
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	if already {
		logger.Info(ctx, "invoice already posted", "invoice_id", invoiceID, "invoice_no", inv.InvoiceNo)
		return resultOf(inv), nil
	}

	s.afterPost(ctx, actor, inv, before, sale)
	return resultOf(inv), nil
}

// post runs the posting steps on a locked DRAFT invoice with lines loaded.
// It must run inside a transaction; any error leaves no mutation behind.
func (s *Service) post(ctx context.Context, actor *identity.Actor, inv *Invoice) (*PostedSale, error) {
	if len(inv.Lines) == 0 {
		return nil, apperror.NewEmptyInvoice(inv.ID.String())
	}

	products, err := s.catalog.Products(ctx, inv.ProductIDs())
	if err != nil {
		return nil, err
	}

	if s.compliance != nil {
		if err := s.compliance.EnsurePrescription(ctx, inv, products); err != nil {
			return nil, err
		}
	}

	if err := s.hooks.Run(ctx, domain.BeforePost, inv); err != nil {
		return nil, err
	}

	batchIDs := id.SortedUnique(inv.BatchIDs())
	if err := s.inventory.LockBatches(ctx, batchIDs); err != nil {
		return nil, err
	}
	batches, err := s.catalog.Batches(ctx, batchIDs)
	if err != nil {
		return nil, err
	}

	// Pass one: validate everything before the first write.
	if err := s.validateLines(ctx, inv, products, batches); err != nil {
		return nil, err
	}

	// Pass two: compute amounts, persist them and deduct stock.
	totals := NewTotals()
	for i := range inv.Lines {
		line := &inv.Lines[i]
		amounts := ComputeLine(*line)
		line.TaxAmount = decimal.NewNullDecimal(amounts.Tax)
		line.LineTotal = decimal.NewNullDecimal(amounts.Total)
		totals.Add(amounts)
	}
	if err := s.repo.UpdateLineAmounts(ctx, inv.Lines); err != nil {
		return nil, fmt.Errorf("update line amounts: %w", err)
	}

	for _, line := range inv.Lines {
		m := inventory.NewMovement(inv.LocationID, line.BatchID, line.QtyBase.Neg(),
			inventory.ReasonSale, inventory.RefSalesInvoice, inv.ID)
		if err := s.inventory.WriteMovement(ctx, m); err != nil {
			return nil, fmt.Errorf("write sale movement: %w", err)
		}
	}

	inv.ApplyTotals(totals.Finalize())
	if err := inv.MarkPosted(actor.Ref(), s.now().UTC()); err != nil {
		return nil, err
	}

	s.createComplianceEntries(ctx, inv, products)

	paid, err := s.repo.SumPayments(ctx, inv.ID)
	if err != nil {
		return nil, fmt.Errorf("sum payments: %w", err)
	}
	inv.ApplyPayments(paid)

	if err := s.repo.Update(ctx, inv); err != nil {
		return nil, fmt.Errorf("update invoice: %w", err)
	}

	sale := &PostedSale{
		InvoiceID:  inv.ID,
		InvoiceNo:  inv.InvoiceNo,
		LocationID: inv.LocationID,
		Products:   products,
		Batches:    batches,
	}
	for _, line := range inv.Lines {
		sale.Items = append(sale.Items, SoldItem{ProductID: line.ProductID, BatchID: line.BatchID})
	}
	return sale, nil
}

// validateLines checks sellability, line values and stock sufficiency.
// Quantities of lines sharing a batch are checked together.
func (s *Service) validateLines(
	ctx context.Context,
	inv *Invoice,
	products map[id.ID]*catalog.Product,
	batches map[id.ID]*catalog.BatchLot,
) error {
	asOf := s.now()
	required := make(map[id.ID]types.Quantity, len(inv.Lines))
	order := make([]id.ID, 0, len(inv.Lines))

	for _, line := range inv.Lines {
		product := products[line.ProductID]
		batch := batches[line.BatchID]

		if batch.ProductID != line.ProductID {
			return lineError(line.LineNo, "batch does not belong to product").
				WithDetail("batch_id", line.BatchID.String()).
				WithDetail("product_id", line.ProductID.String())
		}
		if err := batch.Sellable(asOf); err != nil {
			return err
		}
		if err := validateLineValues(line, product); err != nil {
			return err
		}

		if _, seen := required[line.BatchID]; !seen {
			order = append(order, line.BatchID)
			required[line.BatchID] = types.Zero()
		}
		required[line.BatchID] = required[line.BatchID].Add(line.QtyBase)
	}

	for _, batchID := range order {
		onHand, err := s.inventory.StockOnHand(ctx, inv.LocationID, batchID)
		if err != nil {
			return err
		}
		if onHand.LessThan(required[batchID]) {
			return apperror.NewInsufficientStock(
				batches[batchID].ProductID.String(),
				batchID.String(),
				onHand,
				required[batchID],
			)
		}
	}
	return nil
}

func validateLineValues(line Line, product *catalog.Product) error {
	switch line.SoldUOM {
	case UOMBase, UOMPack:
	default:
		return lineError(line.LineNo, fmt.Sprintf("unknown unit %q", line.SoldUOM))
	}
	if err := product.ValidateBaseQty(line.QtyBase); err != nil {
		if appErr, ok := apperror.AsAppError(err); ok {
			return appErr.WithDetail("line_no", line.LineNo)
		}
		return err
	}
	if line.RatePerBase.IsNegative() {
		return lineError(line.LineNo, "rate cannot be negative")
	}
	if line.DiscountAmount.IsNegative() {
		return lineError(line.LineNo, "discount cannot be negative")
	}
	if line.DiscountAmount.GreaterThan(line.QtyBase.Mul(line.RatePerBase)) {
		return lineError(line.LineNo, "discount exceeds line amount")
	}
	if line.TaxPercent.IsNegative() {
		return lineError(line.LineNo, "tax percent cannot be negative")
	}
	return nil
}

// createComplianceEntries writes register rows inside a savepoint.
// Failures are logged and never abort the posting.
func (s *Service) createComplianceEntries(ctx context.Context, inv *Invoice, products map[id.ID]*catalog.Product) {
	if s.compliance == nil {
		return
	}
	err := s.txManager.RunInSavepoint(ctx, func(ctx context.Context) error {
		return s.compliance.CreateEntries(ctx, inv, products)
	})
	if err != nil {
		logger.Warn(ctx, "compliance entries not created",
			"invoice_id", inv.ID,
			"invoice_no", inv.InvoiceNo,
			"error", err,
		)
	}
}

func (s *Service) afterPost(ctx context.Context, actor *identity.Actor, inv *Invoice, before map[string]any, sale *PostedSale) {
	logger.Info(ctx, "invoice posted",
		"invoice_id", inv.ID,
		"invoice_no", inv.InvoiceNo,
		"net_total", inv.NetTotal.String(),
		"payment_status", inv.PaymentStatus,
	)

	if err := s.hooks.Run(ctx, domain.AfterPost, inv); err != nil {
		logger.Warn(ctx, "after-post hook failed", "invoice_id", inv.ID, "error", err)
	}
	if s.observer != nil && sale != nil {
		s.observer.NotifySale(ctx, *sale)
	}
	s.record(ctx, actor, inv, audit.ActionPost, before, inv.Snapshot())
}

// CancelInvoice reverses a POSTED invoice by writing offsetting ADJUSTMENT movements.
func (s *Service) CancelInvoice(ctx context.Context, actor *identity.Actor, invoiceID id.ID) (*Result, error) {
	ctx, span := tracer.Start(ctx, "sales.CancelInvoice",
		trace.WithAttributes(attribute.String("invoice.id", invoiceID.String())))
	defer span.End()

	var (
		inv    *Invoice
		before map[string]any
	)
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		locked, err := s.repo.GetForUpdateNoWait(ctx, invoiceID)
		if err != nil {
			return err
		}
		inv = locked

		if !inv.CanTransition(StatusCancelled) {
			return inv.transitionError(StatusCancelled)
		}

		lines, err := s.repo.GetLines(ctx, invoiceID)
		if err != nil {
			return fmt.Errorf("get lines: %w", err)
		}
		inv.Lines = lines
		before = inv.Snapshot()

		if err := s.restoreStock(ctx, inv); err != nil {
			return err
		}
		if err := inv.MarkCancelled(actor.Ref(), s.now().UTC()); err != nil {
			return err
		}
		if err := s.repo.Update(ctx, inv); err != nil {
			return fmt.Errorf("update invoice: %w", err)
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	logger.Info(ctx, "invoice cancelled", "invoice_id", inv.ID, "invoice_no", inv.InvoiceNo)

	if err := s.hooks.Run(ctx, domain.AfterCancel, inv); err != nil {
		logger.Warn(ctx, "after-cancel hook failed", "invoice_id", inv.ID, "error", err)
	}
	s.record(ctx, actor, inv, audit.ActionCancel, before, inv.Snapshot())
	return resultOf(inv), nil
}

// RestoreStockForInvoice writes offsetting movements for a POSTED invoice
// without changing its status. It takes the invoice's NOWAIT lock and joins
// the caller's transaction when present. Restoring twice is a no-op.
func (s *Service) RestoreStockForInvoice(ctx context.Context, invoiceID id.ID) error {
	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		inv, err := s.repo.GetForUpdateNoWait(ctx, invoiceID)
		if err != nil {
			return err
		}
		if inv.Status != StatusPosted {
			return nil
		}
		lines, err := s.repo.GetLines(ctx, invoiceID)
		if err != nil {
			return fmt.Errorf("get lines: %w", err)
		}
		inv.Lines = lines
		return s.restoreStock(ctx, inv)
	})
}

// restoreStock must run under the invoice lock. A POSTED invoice is restored
// at most once; later calls find the ADJUSTMENT rows and write nothing.
func (s *Service) restoreStock(ctx context.Context, inv *Invoice) error {
	existing, err := s.inventory.MovementsFor(ctx, inventory.RefSalesInvoice, inv.ID)
	if err != nil {
		return fmt.Errorf("list invoice movements: %w", err)
	}
	for _, m := range existing {
		if m.Reason == inventory.ReasonAdjustment {
			logger.Debug(ctx, "invoice stock already restored", "invoice_id", inv.ID)
			return nil
		}
	}

	for _, line := range inv.Lines {
		m := inventory.NewMovement(inv.LocationID, line.BatchID, line.QtyBase,
			inventory.ReasonAdjustment, inventory.RefSalesInvoice, inv.ID)
		if err := s.inventory.WriteMovement(ctx, m); err != nil {
			return fmt.Errorf("write restore movement: %w", err)
		}
	}
	return nil
}

// CreateInvoice stores a DRAFT invoice built from d.
// The invoice number is issued before the transaction and is not reused on failure.
func (s *Service) CreateInvoice(ctx context.Context, actor *identity.Actor, d Draft) (*Invoice, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}

	number, err := s.numerator.NextDocNumber(ctx, numerator.ForType(numerator.DocInvoice))
	if err != nil {
		return nil, fmt.Errorf("generate invoice number: %w", err)
	}

	var inv *Invoice
	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		built, err := s.buildInvoice(ctx, actor, number, d)
		if err != nil {
			return err
		}
		inv = built
		return s.create(ctx, inv)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "invoice created", "invoice_id", inv.ID, "invoice_no", inv.InvoiceNo, "lines", len(inv.Lines))

	if err := s.hooks.Run(ctx, domain.AfterCreate, inv); err != nil {
		logger.Warn(ctx, "after-create hook failed", "invoice_id", inv.ID, "error", err)
	}
	s.record(ctx, actor, inv, audit.ActionCreate, nil, inv.Snapshot())
	return inv, nil
}

// CreateAndPost creates and posts an invoice in one transaction,
// so batch allocation and stock deduction share the same locks.
func (s *Service) CreateAndPost(ctx context.Context, actor *identity.Actor, d Draft) (*Result, error) {
	ctx, span := tracer.Start(ctx, "sales.CreateAndPost")
	defer span.End()

	if err := d.Validate(); err != nil {
		return nil, err
	}

	number, err := s.numerator.NextDocNumber(ctx, numerator.ForType(numerator.DocInvoice))
	if err != nil {
		return nil, fmt.Errorf("generate invoice number: %w", err)
	}

	var (
		inv  *Invoice
		sale *PostedSale
	)
	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		built, err := s.buildInvoice(ctx, actor, number, d)
		if err != nil {
			return err
		}
		inv = built
		if err := s.create(ctx, inv); err != nil {
			return err
		}
		sale, err = s.post(ctx, actor, inv)
		return err
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	if err := s.hooks.Run(ctx, domain.AfterCreate, inv); err != nil {
		logger.Warn(ctx, "after-create hook failed", "invoice_id", inv.ID, "error", err)
	}
	s.afterPost(ctx, actor, inv, nil, sale)
	return resultOf(inv), nil
}

func (s *Service) create(ctx context.Context, inv *Invoice) error {
	if err := inv.Validate(ctx); err != nil {
		return err
	}
	if err := s.hooks.Run(ctx, domain.BeforeCreate, inv); err != nil {
		return err
	}
	if err := s.repo.Create(ctx, inv); err != nil {
		return fmt.Errorf("create invoice: %w", err)
	}
	return nil
}

// buildInvoice resolves products, converts pack quantities and expands
// batchless lines through FEFO allocation.
func (s *Service) buildInvoice(ctx context.Context, actor *identity.Actor, number string, d Draft) (*Invoice, error) {
	inv := NewInvoice(number, d.LocationID, d.CustomerName)
	inv.CustomerPhone = d.CustomerPhone
	inv.PrescriptionID = d.PrescriptionID
	inv.CreatedBy = actor.Ref()

	if len(d.Lines) == 0 {
		return inv, nil
	}

	productIDs := make([]id.ID, 0, len(d.Lines))
	for _, l := range d.Lines {
		productIDs = append(productIDs, l.ProductID)
	}
	products, err := s.catalog.Products(ctx, id.SortedUnique(productIDs))
	if err != nil {
		return nil, err
	}

	lineNo := 0
	addLine := func(dl DraftLine, uom UOM, batchID id.ID, qty types.Quantity, discount types.Money, taxPct decimal.Decimal) {
		lineNo++
		inv.Lines = append(inv.Lines, Line{
			ID:             id.New(),
			InvoiceID:      inv.ID,
			LineNo:         lineNo,
			ProductID:      dl.ProductID,
			BatchID:        batchID,
			SoldUOM:        uom,
			QtyBase:        qty,
			RatePerBase:    dl.RatePerBase,
			DiscountAmount: discount,
			TaxPercent:     taxPct,
		})
	}

	type resolvedLine struct {
		uom     UOM
		qtyBase types.Quantity
		taxPct  decimal.Decimal
	}
	resolved := make([]resolvedLine, len(d.Lines))
	fefoQty := make(map[id.ID]types.Quantity)
	var fefoProducts []id.ID
	for i, dl := range d.Lines {
		product := products[dl.ProductID]
		uom := normalizeUOM(dl.UOM)

		qtyBase := dl.Qty
		if uom == UOMPack {
			qtyBase = product.PacksToBase(dl.Qty)
		}
		if err := product.ValidateBaseQty(qtyBase); err != nil {
			if appErr, ok := apperror.AsAppError(err); ok {
				return nil, appErr.WithDetail("line_no", i+1)
			}
			return nil, err
		}

		taxPct := product.TaxRate
		if dl.TaxPercent != nil {
			taxPct = *dl.TaxPercent
		}
		resolved[i] = resolvedLine{uom: uom, qtyBase: qtyBase, taxPct: taxPct}

		if !hasBatch(dl) {
			if _, ok := fefoQty[dl.ProductID]; !ok {
				fefoQty[dl.ProductID] = types.Zero()
				fefoProducts = append(fefoProducts, dl.ProductID)
			}
			fefoQty[dl.ProductID] = fefoQty[dl.ProductID].Add(qtyBase)
		}
	}

	// Products are allocated in id order so concurrent sales lock batches in the same order.
	pools := make(map[id.ID][]inventory.Allocation, len(fefoProducts))
	for _, productID := range id.SortedUnique(fefoProducts) {
		allocs, err := s.allocator.AllocateForProduct(ctx, productID, d.LocationID, fefoQty[productID])
		if err != nil {
			return nil, err
		}
		pools[productID] = allocs
	}

	for i, dl := range d.Lines {
		r := resolved[i]
		if hasBatch(dl) {
			addLine(dl, r.uom, *dl.BatchID, r.qtyBase, dl.Discount, r.taxPct)
			continue
		}

		var allocs []inventory.Allocation
		allocs, pools[dl.ProductID] = takeAllocations(pools[dl.ProductID], r.qtyBase)
		discounts := splitDiscount(dl.Discount, r.qtyBase, allocs)
		for j, a := range allocs {
			addLine(dl, r.uom, a.BatchID, a.Qty, discounts[j], r.taxPct)
		}
	}

	return inv, nil
}

// DeleteInvoice removes an invoice; a POSTED invoice has its stock restored first.
func (s *Service) DeleteInvoice(ctx context.Context, actor *identity.Actor, invoiceID id.ID) error {
	var (
		inv    *Invoice
		before map[string]any
	)
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		locked, err := s.repo.GetForUpdateNoWait(ctx, invoiceID)
		if err != nil {
			return err
		}
		inv = locked

		lines, err := s.repo.GetLines(ctx, invoiceID)
		if err != nil {
			return fmt.Errorf("get lines: %w", err)
		}
		inv.Lines = lines
		before = inv.Snapshot()

		if err := s.RestoreStockForInvoice(ctx, invoiceID); err != nil {
			return err
		}
		if err := s.repo.Delete(ctx, invoiceID); err != nil {
			return fmt.Errorf("delete invoice: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	logger.Info(ctx, "invoice deleted", "invoice_id", invoiceID, "invoice_no", inv.InvoiceNo, "status", inv.Status)

	if err := s.hooks.Run(ctx, domain.AfterDelete, inv); err != nil {
		logger.Warn(ctx, "after-delete hook failed", "invoice_id", invoiceID, "error", err)
	}
	s.record(ctx, actor, inv, audit.ActionDelete, before, nil)
	return nil
}

// AddPayment records money received against a POSTED invoice.
func (s *Service) AddPayment(ctx context.Context, actor *identity.Actor, invoiceID id.ID, amount types.Money, mode string) (*Result, error) {
	if !amount.IsPositive() {
		return nil, apperror.NewValidation("payment amount must be positive")
	}
	mode = strings.ToUpper(strings.TrimSpace(mode))
	if mode == "" {
		mode = "CASH"
	}

	var (
		inv    *Invoice
		before map[string]any
	)
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		locked, err := s.repo.GetForUpdateNoWait(ctx, invoiceID)
		if err != nil {
			return err
		}
		inv = locked

		if inv.Status != StatusPosted {
			return apperror.NewBusinessRule(apperror.CodeInvalidStateTransition,
				"Payments can only be recorded against posted invoices").
				WithDetail("invoice_id", invoiceID.String()).
				WithDetail("status", string(inv.Status))
		}
		before = inv.Snapshot()

		payment := Payment{
			ID:         id.New(),
			InvoiceID:  invoiceID,
			Amount:     amount,
			Mode:       mode,
			ReceivedAt: s.now().UTC(),
		}
		if err := s.repo.AddPayment(ctx, payment); err != nil {
			return fmt.Errorf("add payment: %w", err)
		}

		paid, err := s.repo.SumPayments(ctx, invoiceID)
		if err != nil {
			return fmt.Errorf("sum payments: %w", err)
		}
		inv.ApplyPayments(paid)
		inv.Touch()

		if err := s.repo.Update(ctx, inv); err != nil {
			return fmt.Errorf("update invoice: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "payment recorded",
		"invoice_id", invoiceID,
		"amount", amount.String(),
		"mode", mode,
		"payment_status", inv.PaymentStatus,
	)
	s.record(ctx, actor, inv, audit.ActionPayment, before, inv.Snapshot())
	return resultOf(inv), nil
}

// GetInvoice returns an invoice with its lines and payments.
func (s *Service) GetInvoice(ctx context.Context, invoiceID id.ID) (*Invoice, error) {
	inv, err := s.repo.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}

	lines, err := s.repo.GetLines(ctx, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("get lines: %w", err)
	}
	inv.Lines = lines

	payments, err := s.repo.GetPayments(ctx, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("get payments: %w", err)
	}
	inv.Payments = payments

	return inv, nil
}

// InvoiceMovements lists the ledger rows an invoice wrote, sales and reversals alike.
func (s *Service) InvoiceMovements(ctx context.Context, invoiceID id.ID) ([]inventory.Movement, error) {
	if _, err := s.repo.GetByID(ctx, invoiceID); err != nil {
		return nil, err
	}
	return s.inventory.MovementsFor(ctx, inventory.RefSalesInvoice, invoiceID)
}

// InvoiceHistory returns up to limit audit rows for an invoice, newest first.
func (s *Service) InvoiceHistory(ctx context.Context, invoiceID id.ID, limit int) ([]audit.Log, error) {
	if _, err := s.repo.GetByID(ctx, invoiceID); err != nil {
		return nil, err
	}
	if s.audit == nil {
		return []audit.Log{}, nil
	}
	return s.audit.History(ctx, TableInvoices, invoiceID, limit)
}

func (s *Service) record(ctx context.Context, actor *identity.Actor, inv *Invoice, action audit.Action, before, after map[string]any) {
	if s.audit == nil {
		return
	}
	s.audit.Record(ctx, audit.Entry{
		Actor:    actor,
		Table:    TableInvoices,
		RecordID: inv.ID,
		Action:   action,
		Before:   before,
		After:    after,
	})
}
