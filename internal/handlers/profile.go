package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"backend/internal/auth"
)

type profileUpdateRequest struct {
	Username *string `json:"username"`
}

// UpdateProfile changes the authenticated user's username. The new name is
// propagated onto the creatorName field of previously created activities in
// the background; the profile write does not wait for it.
func UpdateProfile(store auth.UserStore, db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /user/profile"

		identity, ok := currentIdentity(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		userID := c.MustGet("userId").(primitive.ObjectID)

		var req profileUpdateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
			return
		}
		if req.Username == nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "nothing to update"})
			return
		}

		username := strings.TrimSpace(*req.Username)

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		if username != "" && username != identity.Username {
			existing, err := store.FindByUsername(ctx, username)
			if err != nil && !errors.Is(err, auth.ErrUserNotFound) {
				respondWithError(c, http.StatusInternalServerError, route, "db error")
				return
			}
			if existing != nil && existing.ID != userID {
				log.Printf("[%s] username exists: %s", route, username)
				c.JSON(http.StatusConflict, gin.H{"error": "username already taken"})
				return
			}
		}

		if err := store.Update(ctx, identity.ID, auth.UserUpdate{Username: &username}); err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		go propagateCreatorName(db, userID, username)

		log.Printf("[%s] username updated: %s", route, identity.ID)
		c.JSON(http.StatusOK, gin.H{
			"user": gin.H{
				"id":       identity.ID,
				"email":    identity.Email,
				"username": username,
			},
		})
	}
}

// propagateCreatorName rewrites the denormalized creator name on the user's
// activities. Best effort: the profile update has already succeeded.
func propagateCreatorName(db *mongo.Database, userID primitive.ObjectID, name string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	res, err := db.Collection("activities").UpdateMany(ctx,
		bson.M{"createdBy": userID},
		bson.M{"$set": bson.M{"creatorName": name}},
	)
	if err != nil {
		log.Println("[PROFILE] [ERROR] creator name propagation failed:", err)
		return
	}
	log.Printf("[PROFILE] [INFO] creator name propagated to %d activities", res.ModifiedCount)
}
