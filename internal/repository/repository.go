package repository

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var ErrNotFound = errors.New("documento no encontrado")

// MongoStore es el document store del dashboard: lecturas por colección + id,
// listados con filtro y upsert de documentos completos.
type MongoStore struct {
	db *mongo.Database
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{db: db}
}

// idFilter acepta ids string y ObjectID: un id con forma de ObjectID puede
// estar guardado de cualquiera de las dos maneras.
func idFilter(id string) bson.M {
	if oid, err := primitive.ObjectIDFromHex(id); err == nil {
		return bson.M{"_id": bson.M{"$in": bson.A{oid, id}}}
	}
	return bson.M{"_id": id}
}

// GetDocument devuelve found=false (sin error) si el documento no existe.
func (m *MongoStore) GetDocument(ctx context.Context, collection, id string) (bson.Raw, bool, error) {
	doc, err := m.FindOne(ctx, collection, idFilter(id))
	if errors.Is(err, ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return doc, true, nil
}

func (m *MongoStore) FindOne(ctx context.Context, collection string, filter bson.M) (bson.Raw, error) {
	raw, err := m.db.Collection(collection).FindOne(ctx, filter).Raw()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find one in %s: %w", collection, err)
	}
	return raw, nil
}

func (m *MongoStore) ListDocuments(ctx context.Context, collection string, filter bson.M) ([]bson.Raw, error) {
	if filter == nil {
		filter = bson.M{}
	}
	cur, err := m.db.Collection(collection).Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}
	defer cur.Close(ctx)

	var out []bson.Raw
	for cur.Next(ctx) {
		// cur.Current se reutiliza en cada Next
		out = append(out, append(bson.Raw(nil), cur.Current...))
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}
	return out, nil
}

func (m *MongoStore) CountDocuments(ctx context.Context, collection string, filter bson.M) (int64, error) {
	if filter == nil {
		filter = bson.M{}
	}
	n, err := m.db.Collection(collection).CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", collection, err)
	}
	return n, nil
}

// UpdateDocument aplica $set con fields sobre el documento con el id dado.
// Los campos que no aparecen en fields no se tocan.
func (m *MongoStore) UpdateDocument(ctx context.Context, collection, id string, fields bson.M) error {
	res, err := m.db.Collection(collection).UpdateOne(ctx, idFilter(id), bson.M{"$set": fields})
	if err != nil {
		return fmt.Errorf("update %s/%s: %w", collection, id, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("update %s/%s: %w", collection, id, ErrNotFound)
	}
	return nil
}

// SaveDocument reemplaza (o inserta) el documento con el id dado. Sin id se
// genera un ObjectID nuevo. Si el documento ya existe se conserva su _id tal
// como está guardado (string u ObjectID). Devuelve el id usado.
func (m *MongoStore) SaveDocument(ctx context.Context, collection, id string, doc any) (string, error) {
	if id == "" {
		id = primitive.NewObjectID().Hex()
	}

	replacement, err := withoutID(doc)
	if err != nil {
		return "", fmt.Errorf("save %s/%s: %w", collection, id, err)
	}

	filter := bson.M{"_id": id}
	existing, err := m.FindOne(ctx, collection, idFilter(id))
	switch {
	case err == nil:
		filter = bson.M{"_id": existing.Lookup("_id")}
	case !errors.Is(err, ErrNotFound):
		return "", err
	}

	opts := options.Replace().SetUpsert(true)
	if _, err := m.db.Collection(collection).ReplaceOne(ctx, filter, replacement, opts); err != nil {
		return "", fmt.Errorf("save %s/%s: %w", collection, id, err)
	}
	return id, nil
}

// withoutID serializa doc sin el campo _id, que lo fija el filtro del upsert.
func withoutID(doc any) (bson.D, error) {
	raw, err := bson.Marshal(doc)
	if err != nil {
		return nil, err
	}
	var d bson.D
	if err := bson.Unmarshal(raw, &d); err != nil {
		return nil, err
	}
	out := d[:0]
	for _, e := range d {
		if e.Key != "_id" {
			out = append(out, e)
		}
	}
	return out, nil
}
