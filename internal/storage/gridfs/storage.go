package gridfs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/shestoi/GoBigTech/services/transaction/internal/storage"
)

const metadataContentType = "content_type"

// fileDocument - запись из коллекции <bucket>.files
type fileDocument struct {
	ID       primitive.ObjectID `bson:"_id"`
	Metadata bson.M             `bson:"metadata"`
}

// ProofStorage хранит подтверждения оплаты в MongoDB GridFS
// Имя файла = transaction ID, content type лежит в metadata
type ProofStorage struct {
	db         *mongo.Database
	bucketName string
	logger     *zap.Logger
}

// NewProofStorage создаёт GridFS хранилище в базе dbName и bucket bucketName
func NewProofStorage(client *mongo.Client, dbName, bucketName string, logger *zap.Logger) *ProofStorage {
	return &ProofStorage{
		db:         client.Database(dbName),
		bucketName: bucketName,
		logger:     logger,
	}
}

// bucket создаёт GridFS bucket на одну операцию: deadline задаётся на bucket,
// поэтому общий bucket между горутинами использовать нельзя
func (s *ProofStorage) bucket(ctx context.Context) (*gridfs.Bucket, error) {
	b, err := gridfs.NewBucket(s.db, options.GridFSBucket().SetName(s.bucketName))
	if err != nil {
		return nil, err
	}
	if deadline, ok := ctx.Deadline(); ok {
		if err := b.SetReadDeadline(deadline); err != nil {
			return nil, err
		}
		if err := b.SetWriteDeadline(deadline); err != nil {
			return nil, err
		}
	}
	return b, nil
}

// Put загружает новое подтверждение и удаляет предыдущие версии для этой транзакции
func (s *ProofStorage) Put(ctx context.Context, transactionID string, data []byte, contentType string) error {
	b, err := s.bucket(ctx)
	if err != nil {
		return fmt.Errorf("gridfs bucket: %w", err)
	}

	uploadOpts := options.GridFSUpload().SetMetadata(bson.D{
		{Key: metadataContentType, Value: contentType},
		{Key: "uploaded_at", Value: time.Now().UTC()},
	})
	fileID, err := b.UploadFromStream(transactionID, bytes.NewReader(data), uploadOpts)
	if err != nil {
		return fmt.Errorf("gridfs upload: %w", err)
	}

	// Удаляем только файлы старше загруженного: при конкурентных загрузках
	// новейший файл остаётся, Get всегда отдаёт файл с наибольшим _id
	stale, err := s.find(ctx, b, bson.M{"filename": transactionID, "_id": bson.M{"$lt": fileID}}, nil)
	if err != nil {
		s.logger.Warn("failed to list stale proofs",
			zap.Error(err),
			zap.String("transaction_id", transactionID),
		)
		return nil
	}
	for _, doc := range stale {
		if err := b.Delete(doc.ID); err != nil && !errors.Is(err, gridfs.ErrFileNotFound) {
			s.logger.Warn("failed to delete stale proof",
				zap.Error(err),
				zap.String("transaction_id", transactionID),
				zap.String("file_id", doc.ID.Hex()),
			)
		}
	}

	return nil
}

// Get возвращает последнее загруженное подтверждение для транзакции
func (s *ProofStorage) Get(ctx context.Context, transactionID string) (storage.Proof, error) {
	b, err := s.bucket(ctx)
	if err != nil {
		return storage.Proof{}, fmt.Errorf("gridfs bucket: %w", err)
	}

	findOpts := options.GridFSFind().
		SetSort(bson.D{{Key: "_id", Value: -1}}).
		SetLimit(1)

	// Файл удаляют только после появления более нового, поэтому при промахе
	// достаточно одного повторного поиска
	for attempt := 0; attempt < 2; attempt++ {
		docs, err := s.find(ctx, b, bson.M{"filename": transactionID}, findOpts)
		if err != nil {
			return storage.Proof{}, fmt.Errorf("gridfs find: %w", err)
		}
		if len(docs) == 0 {
			return storage.Proof{}, storage.ErrNotFound
		}

		var buf bytes.Buffer
		if _, err := b.DownloadToStream(docs[0].ID, &buf); err != nil {
			if errors.Is(err, gridfs.ErrFileNotFound) {
				continue
			}
			return storage.Proof{}, fmt.Errorf("gridfs download: %w", err)
		}

		contentType, _ := docs[0].Metadata[metadataContentType].(string)
		return storage.Proof{Data: buf.Bytes(), ContentType: contentType}, nil
	}
	return storage.Proof{}, storage.ErrNotFound
}

func (s *ProofStorage) find(ctx context.Context, b *gridfs.Bucket, filter bson.M, opts *options.GridFSFindOptions) ([]fileDocument, error) {
	var findOpts []*options.GridFSFindOptions
	if opts != nil {
		findOpts = append(findOpts, opts)
	}
	cursor, err := b.FindContext(ctx, filter, findOpts...)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []fileDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}
