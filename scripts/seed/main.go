package main

import (
	"context"
	"log"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-records-api/internal/repository"
	"github.com/noah-isme/sma-records-api/internal/service"
	"github.com/noah-isme/sma-records-api/pkg/config"
	"github.com/noah-isme/sma-records-api/pkg/database"
	"github.com/noah-isme/sma-records-api/pkg/logger"
)

const (
	seedCode     = "test"
	seedName     = "테스트 컬렉션"
	seedAdminKey = "admin"
)

var (
	seedSubjects = []string{"국어", "수학"}
	seedStudents = []service.AddStudentRequest{
		{Grade: 3, ClassNumber: 1, Number: 1, Name: "김영찬", StudentCardCode: "test"},
		{Grade: 3, ClassNumber: 1, Number: 2, Name: "이하늘", StudentCardCode: "s1002"},
		{Grade: 3, ClassNumber: 1, Number: 3, Name: "박새로이", StudentCardCode: "s1003"},
	}
	seedTeacher = service.AddTeacherRequest{TeacherID: "TCH001", Name: "담임"}
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx := context.Background()
	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close()

	if err := database.Migrate(ctx, db); err != nil {
		logr.Fatal("failed to apply schema", zap.Error(err))
	}

	collectionRepo := repository.NewCollectionRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	teacherRepo := repository.NewTeacherRepository(db)
	recordRepo := repository.NewRecordRepository(db)

	if err := collectionRepo.Delete(ctx, seedCode); err != nil {
		logr.Fatal("failed to reset seed collection", zap.Error(err))
	}

	collections := service.NewCollectionService(service.CollectionServiceParams{
		Repo:            collectionRepo,
		Students:        studentRepo,
		Teachers:        teacherRepo,
		DefaultSubjects: seedSubjects,
		BcryptCost:      cfg.Records.BcryptCost,
		Logger:          logr,
	})
	students := service.NewStudentService(studentRepo, recordRepo, nil, nil, logr)
	teachers := service.NewTeacherService(teacherRepo, nil, logr)

	collection, err := collections.Create(ctx, service.CreateCollectionRequest{
		Code:     seedCode,
		Name:     seedName,
		AdminKey: seedAdminKey,
	})
	if err != nil {
		logr.Fatal("failed to create collection", zap.Error(err))
	}

	for _, req := range seedStudents {
		if _, err := students.Add(ctx, collection, req); err != nil {
			logr.Fatal("failed to add student", zap.String("card", req.StudentCardCode), zap.Error(err))
		}
	}
	if _, err := teachers.Add(ctx, collection.Code, seedTeacher); err != nil {
		logr.Fatal("failed to add teacher", zap.Error(err))
	}

	logr.Info("seed complete",
		zap.String("collection", collection.Code),
		zap.Int("students", len(seedStudents)),
		zap.Strings("subjects", seedSubjects),
	)
}
