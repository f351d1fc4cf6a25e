package main

import (
	"context"
	"flag"
	"log"
	"strconv"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/evoclabs/crm/config"
)

// Seeds a candidate collection with realistic form submissions so the
// dashboard has data to triage in development.
func main() {
	var (
		count      = flag.Int("count", 50, "number of leads to create")
		collection = flag.String("collection", "leads", "candidate collection to seed")
		drop       = flag.Bool("drop", false, "drop the collection before seeding")
	)
	flag.Parse()

	cfg := config.Load()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := mongo.Connect(options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatalf("failed to connect to mongo: %v", err)
	}
	defer client.Disconnect(ctx)

	coll := client.Database(cfg.MongoDatabase).Collection(*collection)
	if *drop {
		if err := coll.Drop(ctx); err != nil {
			log.Fatalf("failed to drop collection: %v", err)
		}
		log.Printf("dropped collection %s", *collection)
	}

	gofakeit.Seed(0)

	platforms := []string{"meta", "google"}
	targets := []string{"lead", "sales"}
	formTypes := []string{"book-demo", "contact"}
	statuses := []string{"leads", "leads", "leads", "contacted", "won", "lost"}

	docs := make([]interface{}, 0, *count)
	for i := 0; i < *count; i++ {
		createdAt := gofakeit.DateRange(
			time.Now().AddDate(0, -3, 0),
			time.Now(),
		)

		doc := bson.M{
			"name":      gofakeit.Name(),
			"email":     gofakeit.Email(),
			"platform":  gofakeit.RandomString(platforms),
			"target":    gofakeit.RandomString(targets),
			"formType":  gofakeit.RandomString(formTypes),
			"status":    gofakeit.RandomString(statuses),
			"createdAt": createdAt,
		}

		// Mimic the uneven field presence of real submissions.
		if gofakeit.Bool() {
			doc["company"] = gofakeit.Company()
			doc["workEmail"] = gofakeit.Email()
		}
		if gofakeit.Bool() {
			doc["phoneNumber"] = gofakeit.Phone()
		}
		if gofakeit.Bool() {
			doc["budget"] = strconv.Itoa(gofakeit.Number(100, 10000))
		} else if gofakeit.Bool() {
			doc["revenueRange"] = gofakeit.RandomString([]string{"<1L", "1L-10L", "10L-50L", ">50L"})
		}
		if gofakeit.Bool() {
			doc["message"] = gofakeit.Sentence(12)
		}
		if gofakeit.Bool() {
			doc["website"] = gofakeit.URL()
		}

		docs = append(docs, doc)
	}

	res, err := coll.InsertMany(ctx, docs)
	if err != nil {
		log.Fatalf("failed to insert leads: %v", err)
	}

	log.Printf("seeded %d leads into %s.%s", len(res.InsertedIDs), cfg.MongoDatabase, *collection)
}
