package mongodb

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"LevelVault/internal/gamesave/domain/archive"
	"LevelVault/internal/gamesave/infra/persistence/errs"
	"LevelVault/internal/gamesave/infra/persistence/model"
)

const defaultSnapshotCollectionName = "level_snapshot"

const (
	OpPutSnapshot         = "repo.snapshot.Put"
	OpGetSnapshot         = "repo.snapshot.Get"
	OpFindByFingerprint   = "repo.snapshot.FindByFingerprint"
	OpListSnapshotByLevel = "repo.snapshot.ListByLevel"
)

var errNilCollection = errors.New("mongodb snapshot collection is nil")

type SnapshotRepo struct {
	coll *mongo.Collection
}

func NewSnapshotRepo(db *mongo.Database) *SnapshotRepo {
	if db == nil {
		return &SnapshotRepo{}
	}
	return &SnapshotRepo{coll: db.Collection(defaultSnapshotCollectionName)}
}

// EnsureIndexes 建 fingerprint 唯一索引与 level_name 查询索引，启动时调用一次。
func (r *SnapshotRepo) EnsureIndexes(ctx context.Context) error {
	if r == nil || r.coll == nil {
		return errs.Wrap(OpPutSnapshot, errs.KindInfra, errNilCollection, nil)
	}
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "fingerprint", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "level_name", Value: 1}, {Key: "_id", Value: -1}}},
	})
	return errs.Wrap(OpPutSnapshot, errs.KindInfra, err, nil)
}

func (r *SnapshotRepo) Put(ctx context.Context, s archive.Snapshot) error {
	if r == nil || r.coll == nil {
		return errs.Wrap(OpPutSnapshot, errs.KindInfra, errNilCollection, nil)
	}
	doc := model.SnapshotToDoc(s)
	_, err := r.coll.ReplaceOne(
		ctx,
		bson.M{"_id": doc.ID},
		doc,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return errs.Wrap(OpPutSnapshot, errs.KindInfra, err, map[string]any{"snapshot_id": s.ID})
	}
	return nil
}

func (r *SnapshotRepo) Get(ctx context.Context, id int64) (archive.Snapshot, error) {
	return r.findOne(ctx, OpGetSnapshot, bson.M{"_id": id}, map[string]any{"snapshot_id": id})
}

func (r *SnapshotRepo) FindByFingerprint(ctx context.Context, fp uint64) (archive.Snapshot, error) {
	key := model.FingerprintKey(fp)
	return r.findOne(ctx, OpFindByFingerprint, bson.M{"fingerprint": key}, map[string]any{"fingerprint": key})
}

func (r *SnapshotRepo) findOne(ctx context.Context, op string, filter bson.M, meta map[string]any) (archive.Snapshot, error) {
	if r == nil || r.coll == nil {
		return archive.Snapshot{}, errs.Wrap(op, errs.KindInfra, errNilCollection, nil)
	}
	var doc model.SnapshotDoc
	err := r.coll.FindOne(ctx, filter).Decode(&doc)
	switch {
	case err == nil:
		return model.SnapshotDocToDomain(doc), nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return archive.Snapshot{}, archive.ErrSnapshotNotFound
	default:
		return archive.Snapshot{}, errs.Wrap(op, errs.KindInfra, err, meta)
	}
}

// ListByLevel 按 id 倒序（即生成时间倒序）返回某个关卡的快照，limit<=0 不限。
func (r *SnapshotRepo) ListByLevel(ctx context.Context, name string, limit int) ([]archive.Snapshot, error) {
	if r == nil || r.coll == nil {
		return nil, errs.Wrap(OpListSnapshotByLevel, errs.KindInfra, errNilCollection, nil)
	}
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cur, err := r.coll.Find(ctx, bson.M{"level_name": name}, opts)
	if err != nil {
		return nil, errs.Wrap(OpListSnapshotByLevel, errs.KindInfra, err, map[string]any{"level_name": name})
	}
	var docs []model.SnapshotDoc
	if err = cur.All(ctx, &docs); err != nil {
		return nil, errs.Wrap(OpListSnapshotByLevel, errs.KindInfra, err, map[string]any{"level_name": name})
	}
	out := make([]archive.Snapshot, 0, len(docs))
	for _, d := range docs {
		out = append(out, model.SnapshotDocToDomain(d))
	}
	return out, nil
}
