package validators

import "go.mongodb.org/mongo-driver/bson"

var BasketValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType":             "object",
		"required":             []string{"_id", "participants", "created_at", "last_item_id"},
		"additionalProperties": true,
		"properties": bson.M{
			"_id": bson.M{"bsonType": "string", "minLength": 4, "maxLength": 12},
			"participants": bson.M{
				"bsonType": "array",
				"items":    bson.M{"bsonType": "string", "maxLength": 100},
			},
			"created_at":   bson.M{"bsonType": "date"},
			"last_item_id": bson.M{"bsonType": "long", "minimum": 0},
		},
	},
}
