// Package apptest provides an in-memory implementation of the persistence
// ports for use-case tests. The fake transaction runner snapshots the store
// before each run and restores it when the function fails, so rollback
// behavior can be asserted without a database.
package apptest

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/jhoicas/fulfillment-api/internal/application/ports"
	"github.com/jhoicas/fulfillment-api/internal/domain"
	"github.com/jhoicas/fulfillment-api/internal/domain/entity"
	"github.com/jhoicas/fulfillment-api/internal/domain/event"
	"github.com/jhoicas/fulfillment-api/internal/domain/repository"
)

// Store is the in-memory database. Entities are stored as detached copies:
// reads return fresh copies and writes store fresh copies, mirroring how
// rows behave behind a real repository.
type Store struct {
	mu sync.Mutex

	orders     map[string]*entity.Order
	stockItems map[string]*entity.StockItem
	units      map[string]*entity.InventoryUnit
	payments   map[string]*entity.Payment
	shipments  map[string]*entity.Shipment
	locations  map[string]*entity.StockLocation
	variants   map[string]*entity.Variant
	movements  []*entity.StockMovement
	outbox     []repository.OutboxRecord
	nextOutbox int64
}

func NewStore() *Store {
	return &Store{
		orders:     make(map[string]*entity.Order),
		stockItems: make(map[string]*entity.StockItem),
		units:      make(map[string]*entity.InventoryUnit),
		payments:   make(map[string]*entity.Payment),
		shipments:  make(map[string]*entity.Shipment),
		locations:  make(map[string]*entity.StockLocation),
		variants:   make(map[string]*entity.Variant),
	}
}

// Seed helpers bypass the transaction machinery for test arrangement.

func (s *Store) SeedLocation(l *entity.StockLocation) { s.locations[l.ID] = l }
func (s *Store) SeedVariant(v *entity.Variant)        { s.variants[v.ID] = v }

func (s *Store) SeedStockItem(item *entity.StockItem) {
	c := clone(item)
	c.Movements = nil
	c.Units = nil
	s.stockItems[item.ID] = c
}

func (s *Store) SeedOrder(o *entity.Order) {
	s.orders[o.ID] = clone(o)
	s.indexChildren(o)
}

// Inspection helpers read current state without transaction semantics.

func (s *Store) StockItem(id string) *entity.StockItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.stockItems[id]
	if !ok {
		return nil
	}
	return clone(item)
}

func (s *Store) Order(id string) *entity.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, err := s.loadOrder(id)
	if err != nil {
		return nil
	}
	return o
}

func (s *Store) Payment(id string) *entity.Payment {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.payments[id]
	if !ok {
		return nil
	}
	return clone(p)
}

func (s *Store) UnitsByOrder(orderID string) []*entity.InventoryUnit {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unitsWhere(func(u *entity.InventoryUnit) bool { return u.OrderID == orderID })
}

func (s *Store) Movements(stockItemID string) []*entity.StockMovement {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*entity.StockMovement
	for _, m := range s.movements {
		if m.StockItemID == stockItemID {
			out = append(out, clone(m))
		}
	}
	return out
}

// EventNames lists the outbox event names in append order.
func (s *Store) EventNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.outbox))
	for _, rec := range s.outbox {
		out = append(out, rec.Name)
	}
	return out
}

func (s *Store) Repos() ports.Repos {
	return ports.Repos{
		Orders:     &orderRepo{s},
		StockItems: &stockItemRepo{s},
		Movements:  &movementRepo{s},
		Units:      &unitRepo{s},
		Locations:  &locationRepo{s},
		Payments:   &paymentRepo{s},
		Shipments:  &shipmentRepo{s},
		Variants:   &variantRepo{s},
		Outbox:     &outboxRepo{s},
	}
}

// TxRunner serializes transactions with the store mutex and rolls the store
// back to its pre-transaction snapshot when fn fails.
type TxRunner struct {
	store *Store
}

func NewTxRunner(store *Store) *TxRunner { return &TxRunner{store: store} }

func (t *TxRunner) Run(ctx context.Context, fn func(r ports.Repos) error) error {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	snap := t.store.snapshot()
	if err := fn(t.store.Repos()); err != nil {
		t.store.restore(snap)
		return err
	}
	return nil
}

// ConflictingTxRunner simulates a concurrent writer: every read of the
// named stock item is immediately followed by a version bump in the store,
// so optimistic saves always lose.
type ConflictingTxRunner struct {
	inner       *TxRunner
	store       *Store
	stockItemID string
}

func NewConflictingTxRunner(inner *TxRunner, store *Store, stockItemID string) *ConflictingTxRunner {
	return &ConflictingTxRunner{inner: inner, store: store, stockItemID: stockItemID}
}

func (t *ConflictingTxRunner) Run(ctx context.Context, fn func(r ports.Repos) error) error {
	return t.inner.Run(ctx, func(r ports.Repos) error {
		r.StockItems = &conflictingStockItems{
			StockItemRepository: r.StockItems,
			store:               t.store,
			id:                  t.stockItemID,
		}
		return fn(r)
	})
}

type conflictingStockItems struct {
	repository.StockItemRepository
	store *Store
	id    string
}

func (c *conflictingStockItems) Get(ctx context.Context, id string) (*entity.StockItem, error) {
	item, err := c.StockItemRepository.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if id == c.id {
		c.store.bumpStockVersion(id)
	}
	return item, nil
}

// bumpStockVersion runs inside a transaction; the store mutex is already
// held by the runner.
func (s *Store) bumpStockVersion(id string) {
	if item, ok := s.stockItems[id]; ok {
		c := clone(item)
		c.Version++
		s.stockItems[id] = c
	}
}

type storeSnapshot struct {
	orders     map[string]*entity.Order
	stockItems map[string]*entity.StockItem
	units      map[string]*entity.InventoryUnit
	payments   map[string]*entity.Payment
	shipments  map[string]*entity.Shipment
	movements  []*entity.StockMovement
	outbox     []repository.OutboxRecord
	nextOutbox int64
}

// snapshot copies the containers only. Stored entities are never mutated in
// place (reads and writes go through clones), so sharing them is safe.
func (s *Store) snapshot() storeSnapshot {
	return storeSnapshot{
		orders:     copyMap(s.orders),
		stockItems: copyMap(s.stockItems),
		units:      copyMap(s.units),
		payments:   copyMap(s.payments),
		shipments:  copyMap(s.shipments),
		movements:  append([]*entity.StockMovement(nil), s.movements...),
		outbox:     append([]repository.OutboxRecord(nil), s.outbox...),
		nextOutbox: s.nextOutbox,
	}
}

func (s *Store) restore(snap storeSnapshot) {
	s.orders = snap.orders
	s.stockItems = snap.stockItems
	s.units = snap.units
	s.payments = snap.payments
	s.shipments = snap.shipments
	s.movements = snap.movements
	s.outbox = snap.outbox
	s.nextOutbox = snap.nextOutbox
}

func copyMap[V any](m map[string]V) map[string]V {
	out := make(map[string]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// clone detaches an entity through a JSON round trip. Pending domain events
// are deliberately not part of the copy, matching what a database row holds.
func clone[T any](src *T) *T {
	b, err := json.Marshal(src)
	if err != nil {
		panic(err)
	}
	out := new(T)
	if err := json.Unmarshal(b, out); err != nil {
		panic(err)
	}
	return out
}

func (s *Store) unitsWhere(pred func(u *entity.InventoryUnit) bool) []*entity.InventoryUnit {
	var out []*entity.InventoryUnit
	for _, u := range s.units {
		if pred(u) {
			out = append(out, clone(u))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// indexChildren upserts an order's child rows into their own tables.
func (s *Store) indexChildren(o *entity.Order) {
	for _, li := range o.LineItems {
		for _, u := range li.Units {
			s.units[u.ID] = clone(u)
		}
	}
	for _, p := range o.Payments {
		s.payments[p.ID] = clone(p)
	}
	// Shipment rows only: their unit clones are stale relative to the
	// line-item units upserted above, matching the real OrderRepo, which
	// persists units from line items and the shipment row without units.
	for _, sh := range o.Shipments {
		c := clone(sh)
		c.Units = nil
		s.shipments[sh.ID] = c
	}
}

func (s *Store) storeShipment(sh *entity.Shipment) {
	for _, u := range sh.Units {
		s.units[u.ID] = clone(u)
	}
	c := clone(sh)
	c.Units = nil
	s.shipments[sh.ID] = c
}

// loadOrder reassembles the aggregate the way the SQL repository does:
// payments, shipments and units come from their own tables.
func (s *Store) loadOrder(id string) (*entity.Order, error) {
	stored, ok := s.orders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	o := clone(stored)
	for _, li := range o.LineItems {
		li.Units = s.unitsWhere(func(u *entity.InventoryUnit) bool { return u.LineItemID == li.ID })
	}
	o.Payments = nil
	for _, p := range s.paymentsByOrder(id) {
		o.Payments = append(o.Payments, p)
	}
	o.Shipments = nil
	for _, sh := range s.shipmentsByOrder(id) {
		o.Shipments = append(o.Shipments, sh)
	}
	return o, nil
}

func (s *Store) paymentsByOrder(orderID string) []*entity.Payment {
	var out []*entity.Payment
	for _, p := range s.payments {
		if p.OrderID == orderID {
			out = append(out, clone(p))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (s *Store) shipmentsByOrder(orderID string) []*entity.Shipment {
	var out []*entity.Shipment
	for _, sh := range s.shipments {
		if sh.OrderID == orderID {
			c := clone(sh)
			c.Units = s.unitsWhere(func(u *entity.InventoryUnit) bool { return u.ShipmentID == c.ID })
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// ─── repositories ───

type orderRepo struct{ s *Store }

func (r *orderRepo) Create(_ context.Context, order *entity.Order) error {
	if _, ok := r.s.orders[order.ID]; ok {
		return domain.ErrDuplicate
	}
	r.s.orders[order.ID] = clone(order)
	r.s.indexChildren(order)
	return nil
}

func (r *orderRepo) Get(_ context.Context, id string) (*entity.Order, error) {
	return r.s.loadOrder(id)
}

func (r *orderRepo) GetForUpdate(_ context.Context, id string) (*entity.Order, error) {
	return r.s.loadOrder(id)
}

func (r *orderRepo) Save(_ context.Context, order *entity.Order) error {
	if _, ok := r.s.orders[order.ID]; !ok {
		return domain.ErrNotFound
	}
	r.s.orders[order.ID] = clone(order)
	r.s.indexChildren(order)
	return nil
}

type stockItemRepo struct{ s *Store }

func (r *stockItemRepo) Create(_ context.Context, item *entity.StockItem) error {
	for _, existing := range r.s.stockItems {
		if existing.VariantID == item.VariantID && existing.StockLocationID == item.StockLocationID {
			return domain.ErrDuplicate
		}
	}
	r.s.persistStockItem(item, item.Version)
	return nil
}

func (r *stockItemRepo) Get(_ context.Context, id string) (*entity.StockItem, error) {
	item, ok := r.s.stockItems[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return clone(item), nil
}

func (r *stockItemRepo) GetForUpdate(ctx context.Context, id string) (*entity.StockItem, error) {
	return r.Get(ctx, id)
}

func (r *stockItemRepo) FindForVariantForUpdate(_ context.Context, variantID string) ([]*entity.StockItem, error) {
	var out []*entity.StockItem
	for _, item := range r.s.stockItems {
		if item.VariantID == variantID {
			out = append(out, clone(item))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *stockItemRepo) FindByVariantAndLocation(_ context.Context, variantID, locationID string) (*entity.StockItem, error) {
	for _, item := range r.s.stockItems {
		if item.VariantID == variantID && item.StockLocationID == locationID {
			return clone(item), nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *stockItemRepo) Save(_ context.Context, item *entity.StockItem) error {
	stored, ok := r.s.stockItems[item.ID]
	if !ok {
		return domain.ErrNotFound
	}
	r.s.persistStockItem(item, stored.Version+1)
	return nil
}

func (r *stockItemRepo) SaveWithVersion(_ context.Context, item *entity.StockItem) error {
	stored, ok := r.s.stockItems[item.ID]
	if !ok {
		return domain.ErrNotFound
	}
	if stored.Version != item.Version {
		return domain.ErrVersionConflict
	}
	r.s.persistStockItem(item, item.Version+1)
	return nil
}

// persistStockItem mirrors the SQL repository: counters are written, pending
// movements are appended to the ledger and cleared, the in-memory unit list
// is not a column.
func (s *Store) persistStockItem(item *entity.StockItem, version int) {
	for _, mv := range item.Movements {
		s.movements = append(s.movements, clone(mv))
	}
	item.Movements = nil
	item.Version = version
	c := clone(item)
	c.Units = nil
	s.stockItems[item.ID] = c
}

type movementRepo struct{ s *Store }

func (r *movementRepo) Create(_ context.Context, movement *entity.StockMovement) error {
	r.s.movements = append(r.s.movements, clone(movement))
	return nil
}

func (r *movementRepo) ListByStockItem(_ context.Context, stockItemID string, limit, offset int) ([]*entity.StockMovement, error) {
	var all []*entity.StockMovement
	for _, m := range r.s.movements {
		if m.StockItemID == stockItemID {
			all = append(all, clone(m))
		}
	}
	// Newest first, like the SQL ordering.
	for i, j := 0, len(all)-1; i < j; i, j = i+1, j-1 {
		all[i], all[j] = all[j], all[i]
	}
	if offset > len(all) {
		offset = len(all)
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

func (r *movementRepo) ListByReference(_ context.Context, reference string) ([]*entity.StockMovement, error) {
	var out []*entity.StockMovement
	for _, m := range r.s.movements {
		if m.Reference == reference {
			out = append(out, clone(m))
		}
	}
	return out, nil
}

type unitRepo struct{ s *Store }

func (r *unitRepo) CreateBatch(_ context.Context, units []*entity.InventoryUnit) error {
	for _, u := range units {
		r.s.units[u.ID] = clone(u)
	}
	return nil
}

func (r *unitRepo) Save(_ context.Context, unit *entity.InventoryUnit) error {
	r.s.units[unit.ID] = clone(unit)
	return nil
}

func (r *unitRepo) ListByOrder(_ context.Context, orderID string) ([]*entity.InventoryUnit, error) {
	return r.s.unitsWhere(func(u *entity.InventoryUnit) bool { return u.OrderID == orderID }), nil
}

func (r *unitRepo) ListByShipment(_ context.Context, shipmentID string) ([]*entity.InventoryUnit, error) {
	return r.s.unitsWhere(func(u *entity.InventoryUnit) bool { return u.ShipmentID == shipmentID }), nil
}

func (r *unitRepo) ListActiveByStockItem(_ context.Context, stockItemID string) ([]*entity.InventoryUnit, error) {
	return r.s.unitsWhere(func(u *entity.InventoryUnit) bool {
		return u.StockItemID == stockItemID &&
			(u.State == entity.UnitOnHand || u.State == entity.UnitBackordered)
	}), nil
}

type locationRepo struct{ s *Store }

func (r *locationRepo) Get(_ context.Context, id string) (*entity.StockLocation, error) {
	l, ok := r.s.locations[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return l, nil
}

func (r *locationRepo) ListFulfillable(_ context.Context) ([]*entity.StockLocation, error) {
	var out []*entity.StockLocation
	for _, l := range r.s.locations {
		if l.Active && l.Fulfillable {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Default != b.Default {
			return a.Default
		}
		if a.Priority != b.Priority {
			return a.Priority < b.Priority
		}
		return a.ID < b.ID
	})
	return out, nil
}

type paymentRepo struct{ s *Store }

func (r *paymentRepo) Create(_ context.Context, payment *entity.Payment) error {
	r.s.payments[payment.ID] = clone(payment)
	return nil
}

func (r *paymentRepo) Get(_ context.Context, id string) (*entity.Payment, error) {
	p, ok := r.s.payments[id]
	if !ok {
		return nil, domain.ErrPaymentNotFound
	}
	return clone(p), nil
}

func (r *paymentRepo) GetByTransactionID(_ context.Context, transactionID string) (*entity.Payment, error) {
	for _, p := range r.s.payments {
		if p.ReferenceTransactionID == transactionID {
			return clone(p), nil
		}
	}
	return nil, domain.ErrPaymentNotFound
}

func (r *paymentRepo) Save(ctx context.Context, payment *entity.Payment) error {
	return r.Create(ctx, payment)
}

type shipmentRepo struct{ s *Store }

func (r *shipmentRepo) Create(_ context.Context, shipment *entity.Shipment) error {
	r.s.storeShipment(shipment)
	return nil
}

func (r *shipmentRepo) Get(_ context.Context, id string) (*entity.Shipment, error) {
	stored, ok := r.s.shipments[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	sh := clone(stored)
	sh.Units = r.s.unitsWhere(func(u *entity.InventoryUnit) bool { return u.ShipmentID == id })
	return sh, nil
}

func (r *shipmentRepo) GetForUpdate(ctx context.Context, id string) (*entity.Shipment, error) {
	return r.Get(ctx, id)
}

func (r *shipmentRepo) ListByOrder(_ context.Context, orderID string) ([]*entity.Shipment, error) {
	return r.s.shipmentsByOrder(orderID), nil
}

func (r *shipmentRepo) Save(ctx context.Context, shipment *entity.Shipment) error {
	return r.Create(ctx, shipment)
}

type variantRepo struct{ s *Store }

func (r *variantRepo) Get(_ context.Context, id string) (*entity.Variant, error) {
	v, ok := r.s.variants[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return v, nil
}

type outboxRepo struct{ s *Store }

func (r *outboxRepo) Append(_ context.Context, events []event.Event) error {
	for _, e := range events {
		payload, err := json.Marshal(e)
		if err != nil {
			return err
		}
		r.s.nextOutbox++
		r.s.outbox = append(r.s.outbox, repository.OutboxRecord{
			ID:        r.s.nextOutbox,
			EventID:   e.ID,
			Name:      e.Name,
			Key:       e.Key,
			Payload:   payload,
			CreatedAt: time.Now().UTC(),
		})
	}
	return nil
}

func (r *outboxRepo) FetchPending(_ context.Context, limit int) ([]repository.OutboxRecord, error) {
	var out []repository.OutboxRecord
	for _, rec := range r.s.outbox {
		if rec.SentAt != nil {
			continue
		}
		out = append(out, rec)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *outboxRepo) MarkSent(_ context.Context, id int64) error {
	now := time.Now().UTC()
	for i := range r.s.outbox {
		if r.s.outbox[i].ID == id {
			r.s.outbox[i].SentAt = &now
			return nil
		}
	}
	return domain.ErrNotFound
}
