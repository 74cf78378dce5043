package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"urbanharvest/internal/metrics"
	"urbanharvest/internal/models"
	"urbanharvest/internal/validation"
)

type createOrderItemRequest struct {
	ProductID string `json:"productId" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required"`
}

type createOrderRequest struct {
	UserID          string                   `json:"userId"`
	Items           []createOrderItemRequest `json:"items" binding:"required"`
	RecipientName   string                   `json:"recipientName"`
	RecipientPhone  string                   `json:"recipientPhone"`
	DeliveryAddress string                   `json:"deliveryAddress"`
	PaymentMethod   string                   `json:"paymentMethod"`
}

var errUserMismatch = errors.New("userId does not match the authenticated user")

func CreateOrder(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /orders"
		defer handlePanic(c, route)

		userID, ok := currentUserID(c)
		if !ok {
			respondWithError(c, http.StatusUnauthorized, route, "unauthorized")
			return
		}

		var req createOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid request body")
			return
		}

		order, err := buildOrderFromRequest(req, userID)
		if err != nil {
			var fieldErrs validation.FieldErrors
			switch {
			case errors.As(err, &fieldErrs):
				respondWithFieldErrors(c, route, fieldErrs)
			case errors.Is(err, errUserMismatch):
				respondWithError(c, http.StatusForbidden, route, err.Error())
			default:
				respondWithError(c, http.StatusBadRequest, route, err.Error())
			}
			return
		}

		if err := ensureDBConnection(c.Request.Context(), db); err != nil {
			respondWithError(c, http.StatusServiceUnavailable, route, "database unavailable")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		session, err := db.Client().StartSession()
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		defer session.EndSession(ctx)

		_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
			return nil, placeOrder(sessCtx, db, &order)
		})
		if err != nil {
			var stockErr outOfStockError
			if errors.As(err, &stockErr) {
				log.Printf("[ORDER] [WARN] out of stock product=%s request_id=%s", stockErr.ProductID.Hex(), requestID(c))
				body := errorBody(c, stockErr.Error())
				body["productId"] = stockErr.ProductID.Hex()
				body["available"] = stockErr.Available
				body["requested"] = stockErr.Requested
				c.JSON(http.StatusBadRequest, body)
				return
			}
			var notFoundErr productNotFoundError
			if errors.As(err, &notFoundErr) {
				body := errorBody(c, notFoundErr.Error())
				body["productId"] = notFoundErr.ProductID.Hex()
				c.JSON(http.StatusBadRequest, body)
				return
			}
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		metrics.RecordOrder(order.PaymentMethod)
		log.Println("[ORDER] [INFO] order created for user:", userID.Hex())
		c.JSON(http.StatusCreated, gin.H{
			"orderId": order.ID.Hex(),
			"total":   order.TotalPrice,
			"message": "order created",
		})
	}
}

// placeOrder prices every line from the catalogue, decrements stock and inserts the order.
func placeOrder(ctx mongo.SessionContext, db *mongo.Database, order *models.Order) error {
	calculatedItems := make([]models.OrderItem, 0, len(order.Items))
	calculatedTotal := 0.0

	for _, item := range order.Items {
		var product models.Product
		err := db.Collection("products").FindOne(
			ctx,
			visibleProductFilter(bson.M{"_id": item.ProductID}),
		).Decode(&product)
		if err == mongo.ErrNoDocuments {
			return productNotFoundError{ProductID: item.ProductID}
		}
		if err != nil {
			return err
		}

		if product.Stock < item.Quantity {
			return outOfStockError{
				ProductID: item.ProductID,
				Available: product.Stock,
				Requested: item.Quantity,
			}
		}

		unitPrice := effectiveProductPrice(product.Price, product.SaleEnabled, product.SalePrice)
		calculatedItems = append(calculatedItems, models.OrderItem{
			ProductID: item.ProductID,
			Name:      product.Name,
			Price:     unitPrice,
			Quantity:  item.Quantity,
		})
		calculatedTotal += unitPrice * float64(item.Quantity)

		filter := visibleProductFilter(bson.M{
			"_id":   item.ProductID,
			"stock": bson.M{"$gte": item.Quantity},
		})
		update := bson.M{"$inc": bson.M{"stock": -item.Quantity}}

		res, err := db.Collection("products").UpdateOne(ctx, filter, update)
		if err != nil {
			return err
		}
		if res.MatchedCount == 0 {
			return outOfStockError{
				ProductID: item.ProductID,
				Available: product.Stock,
				Requested: item.Quantity,
			}
		}
	}

	order.Items = calculatedItems
	order.TotalPrice = calculatedTotal

	res, err := db.Collection("orders").InsertOne(ctx, order)
	if err != nil {
		return err
	}
	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		order.ID = id
	}
	return nil
}

func buildOrderFromRequest(req createOrderRequest, userID primitive.ObjectID) (models.Order, error) {
	if req.UserID != "" && req.UserID != userID.Hex() {
		return models.Order{}, errUserMismatch
	}

	if len(req.Items) == 0 {
		return models.Order{}, errors.New("at least one item is required")
	}

	recipient, fieldErrs := validation.ValidateRecipient(validation.Recipient{
		RecipientName:   req.RecipientName,
		RecipientPhone:  req.RecipientPhone,
		DeliveryAddress: req.DeliveryAddress,
		PaymentMethod:   req.PaymentMethod,
	})
	if fieldErrs != nil {
		return models.Order{}, fieldErrs
	}

	quantities := make(map[primitive.ObjectID]int, len(req.Items))
	ids := make([]primitive.ObjectID, 0, len(req.Items))
	for _, item := range req.Items {
		productID, err := primitive.ObjectIDFromHex(item.ProductID)
		if err != nil {
			return models.Order{}, errors.New("invalid productId")
		}

		if item.Quantity <= 0 {
			return models.Order{}, errors.New("quantity must be greater than zero")
		}

		if _, seen := quantities[productID]; !seen {
			ids = append(ids, productID)
		}
		quantities[productID] += item.Quantity
	}

	items := make([]models.OrderItem, 0, len(ids))
	for _, productID := range ids {
		items = append(items, models.OrderItem{ProductID: productID, Quantity: quantities[productID]})
	}

	return models.Order{
		UserID:          userID,
		Items:           items,
		RecipientName:   recipient.RecipientName,
		RecipientPhone:  recipient.RecipientPhone,
		DeliveryAddress: recipient.DeliveryAddress,
		PaymentMethod:   recipient.PaymentMethod,
		Status:          "pending",
		CreatedAt:       time.Now(),
	}, nil
}

type outOfStockError struct {
	ProductID primitive.ObjectID
	Available int
	Requested int
}

func (e outOfStockError) Error() string {
	return "product out of stock"
}

type productNotFoundError struct {
	ProductID primitive.ObjectID
}

func (e productNotFoundError) Error() string {
	return "product not found"
}
