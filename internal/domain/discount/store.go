package discount

import "context"

// Record is a flat, id-keyed rule node as persisted by a Store.
type Record interface {
	RecordID() string
	RecordStoreID() string
}

// Store persists records of one kind keyed by id and indexed by owning store.
//
// Save is an idempotent upsert. FindByID and DeleteByID return a
// *NotFoundError for an absent id. FindAll and FindByStore return records
// ordered by id.
type Store[R Record] interface {
	Save(ctx context.Context, r R) error
	FindByID(ctx context.Context, id string) (R, error)
	DeleteByID(ctx context.Context, id string) error
	FindAll(ctx context.Context) ([]R, error)
	ExistsByID(ctx context.Context, id string) (bool, error)
	Size(ctx context.Context) (int, error)
	FindByStore(ctx context.Context, storeID string) ([]R, error)
}

type (
	ConditionStore = Store[ConditionRecord]
	DiscountStore  = Store[DiscountRecord]
)

// Record kinds, as used in NotFoundError.Kind.
const (
	KindCondition = "condition"
	KindDiscount  = "discount"
)
