package handlers

import (
	"context"
	"log"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"backend/internal/models"
)

type ActivityCreateRequest struct {
	Title        string  `json:"title" binding:"required"`
	Description  string  `json:"description"`
	Category     string  `json:"category" binding:"required"`
	Location     string  `json:"location"`
	Price        float64 `json:"price"`
	Participants int     `json:"participants"`
}

type ActivityUpdateRequest struct {
	Title        *string  `json:"title"`
	Description  *string  `json:"description"`
	Category     *string  `json:"category"`
	Location     *string  `json:"location"`
	Price        *float64 `json:"price"`
	Participants *int     `json:"participants"`
}

func buildActivityFilter(category, search string) bson.M {
	filter := bson.M{}

	if category = strings.TrimSpace(category); category != "" {
		filter["category"] = category
	}
	if search = strings.TrimSpace(search); search != "" {
		filter["title"] = bson.M{"$regex": search, "$options": "i"}
	}

	return filter
}

func parseSortParams(sortStr, orderStr string) bson.D {
	field := "createdAt"
	if strings.TrimSpace(sortStr) == "price" {
		field = "price"
	}

	direction := -1
	if strings.EqualFold(strings.TrimSpace(orderStr), "asc") {
		direction = 1
	}

	return bson.D{{Key: field, Value: direction}}
}

func GetActivities(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /activities"
		defer handlePanic(c, route)

		if err := ensureDBConnection(c.Request.Context(), db); err != nil {
			respondWithError(c, http.StatusServiceUnavailable, route, "database unavailable")
			return
		}

		filter := buildActivityFilter(c.Query("category"), c.Query("search"))
		findOptions := options.Find().SetSort(parseSortParams(c.Query("sort"), c.Query("order")))

		pageStr := c.Query("page")
		limitStr := c.Query("limit")
		paginated := pageStr != "" && limitStr != ""

		var page, limit int64
		if paginated {
			var err error
			page, limit, err = parsePaginationParams(pageStr, limitStr)
			if err != nil {
				respondWithError(c, http.StatusBadRequest, route, "invalid pagination params")
				return
			}
			findOptions.SetSkip((page - 1) * limit).SetLimit(limit)
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		cursor, err := db.Collection("activities").Find(ctx, filter, findOptions)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		defer cursor.Close(ctx)

		activities := make([]models.Activity, 0)
		if err := cursor.All(ctx, &activities); err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "decode error")
			return
		}

		if !paginated {
			log.Printf("[%s] returning %d activities", route, len(activities))
			c.JSON(http.StatusOK, gin.H{"data": activities})
			return
		}

		total, err := db.Collection("activities").CountDocuments(ctx, filter)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"data": activities,
			"pagination": gin.H{
				"page":       page,
				"limit":      limit,
				"total":      total,
				"totalPages": int64(math.Ceil(float64(total) / float64(limit))),
			},
		})
	}
}

func GetActivity(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /activities/:id"

		activityID, err := primitive.ObjectIDFromHex(strings.TrimSpace(c.Param("id")))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid activity id")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		var activity models.Activity
		if err := db.Collection("activities").FindOne(ctx, bson.M{"_id": activityID}).Decode(&activity); err != nil {
			if err == mongo.ErrNoDocuments {
				respondWithError(c, http.StatusNotFound, route, "activity not found")
				return
			}
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		c.JSON(http.StatusOK, gin.H{"data": activity})
	}
}

func CreateActivity(db *mongo.Database, maxActivities int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /activities"

		identity, ok := currentIdentity(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		userID := c.MustGet("userId").(primitive.ObjectID)

		var req ActivityCreateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		if maxActivities > 0 {
			count, err := db.Collection("activities").CountDocuments(ctx, bson.M{})
			if err != nil {
				respondWithError(c, http.StatusInternalServerError, route, "db error")
				return
			}
			if count >= maxActivities {
				log.Printf("[%s] activity limit reached", route)
				c.JSON(http.StatusConflict, gin.H{"error": "activity limit reached"})
				return
			}
		}

		now := time.Now()
		activity := models.Activity{
			Title:        strings.TrimSpace(req.Title),
			Description:  strings.TrimSpace(req.Description),
			Category:     strings.TrimSpace(req.Category),
			Location:     strings.TrimSpace(req.Location),
			Price:        req.Price,
			Participants: req.Participants,
			CreatedBy:    userID,
			CreatorName:  identity.Username,
			CreatedAt:    now,
			UpdatedAt:    now,
		}

		res, err := db.Collection("activities").InsertOne(ctx, activity)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		if id, ok := res.InsertedID.(primitive.ObjectID); ok {
			activity.ID = id
		}

		log.Printf("[%s] activity created: %s", route, activity.ID.Hex())
		c.JSON(http.StatusCreated, gin.H{"data": activity})
	}
}

func UpdateActivity(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /activities/:id"

		userID := c.MustGet("userId").(primitive.ObjectID)

		activityID, err := primitive.ObjectIDFromHex(strings.TrimSpace(c.Param("id")))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid activity id")
			return
		}

		var req ActivityUpdateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		var activity models.Activity
		if err := db.Collection("activities").FindOne(ctx, bson.M{"_id": activityID}).Decode(&activity); err != nil {
			if err == mongo.ErrNoDocuments {
				respondWithError(c, http.StatusNotFound, route, "activity not found")
				return
			}
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		if activity.CreatedBy != userID {
			respondWithError(c, http.StatusForbidden, route, "not the activity owner")
			return
		}

		set := bson.M{"updatedAt": time.Now()}
		if req.Title != nil {
			set["title"] = strings.TrimSpace(*req.Title)
		}
		if req.Description != nil {
			set["description"] = strings.TrimSpace(*req.Description)
		}
		if req.Category != nil {
			set["category"] = strings.TrimSpace(*req.Category)
		}
		if req.Location != nil {
			set["location"] = strings.TrimSpace(*req.Location)
		}
		if req.Price != nil {
			set["price"] = *req.Price
		}
		if req.Participants != nil {
			set["participants"] = *req.Participants
		}

		if _, err := db.Collection("activities").UpdateByID(ctx, activityID, bson.M{"$set": set}); err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		var updated models.Activity
		if err := db.Collection("activities").FindOne(ctx, bson.M{"_id": activityID}).Decode(&updated); err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		log.Printf("[%s] activity updated: %s", route, activityID.Hex())
		c.JSON(http.StatusOK, gin.H{"data": updated})
	}
}

func DeleteActivity(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /activities/:id"

		userID := c.MustGet("userId").(primitive.ObjectID)

		activityID, err := primitive.ObjectIDFromHex(strings.TrimSpace(c.Param("id")))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid activity id")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		var activity models.Activity
		if err := db.Collection("activities").FindOne(ctx, bson.M{"_id": activityID}).Decode(&activity); err != nil {
			if err == mongo.ErrNoDocuments {
				respondWithError(c, http.StatusNotFound, route, "activity not found")
				return
			}
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		if activity.CreatedBy != userID {
			respondWithError(c, http.StatusForbidden, route, "not the activity owner")
			return
		}

		if _, err := db.Collection("activities").DeleteOne(ctx, bson.M{"_id": activityID}); err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		log.Printf("[%s] activity deleted: %s", route, activityID.Hex())
		c.JSON(http.StatusOK, gin.H{"message": "activity deleted"})
	}
}
