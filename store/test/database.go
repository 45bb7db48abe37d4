package test

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/lungcare/clinic/store"
	"github.com/lungcare/clinic/test"
)

const (
	mongoTestHostEnvKey = "CLINIC_TEST_MONGO_HOST"
	mongoTestHost       = "mongodb://127.0.0.1:27017"
	mongoTimeout        = time.Second * 5
)

var (
	database    *mongo.Database
	unavailable error
)

// SetupDatabase connects to the test mongod and creates a randomly named database. When no
// server is reachable, specs that need the database are skipped.
func SetupDatabase() {
	host := mongoTestHost
	if value, ok := os.LookupEnv(mongoTestHostEnvKey); ok && value != "" {
		host = value
	}

	client, err := store.Connect(host)
	if err != nil {
		unavailable = err
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), mongoTimeout)
	defer cancel()
	if err := client.Ping(ctx, nil); err != nil {
		unavailable = fmt.Errorf("mongo is not available at %s: %w", host, err)
		return
	}

	databaseName := fmt.Sprintf("clinic_test_%s_%d", test.Faker.Lorem().Word(), ginkgo.GinkgoParallelProcess())
	database = client.Database(databaseName)
}

func TeardownDatabase() {
	if database == nil {
		return
	}
	err := database.Drop(context.Background())
	Expect(err).ToNot(HaveOccurred())

	ctx, cancel := context.WithTimeout(context.Background(), mongoTimeout)
	defer cancel()
	Expect(database.Client().Disconnect(ctx)).ToNot(HaveOccurred())
	database = nil
}

func GetTestDatabase() *mongo.Database {
	if unavailable != nil {
		ginkgo.Skip(unavailable.Error())
	}
	Expect(database).ToNot(BeNil())
	return database
}
