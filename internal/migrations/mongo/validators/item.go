package validators

import "go.mongodb.org/mongo-driver/bson"

var ItemValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType":             "object",
		"required":             []string{"basket_code", "item_id", "product", "price", "quantity", "added_by", "created_at"},
		"additionalProperties": true,
		"properties": bson.M{
			"_id":         bson.M{"bsonType": "objectId"},
			"basket_code": bson.M{"bsonType": "string"},
			"item_id":     bson.M{"bsonType": "long", "minimum": 1},
			"product":     bson.M{"bsonType": "string", "minLength": 1, "maxLength": 200},
			"price":       bson.M{"bsonType": "decimal", "minimum": 0},
			"quantity":    bson.M{"bsonType": []string{"int", "long"}, "minimum": 1},
			"added_by":    bson.M{"bsonType": "string", "minLength": 1, "maxLength": 100},
			"created_at":  bson.M{"bsonType": "date"},
		},
	},
}
