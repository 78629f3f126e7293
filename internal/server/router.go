package server

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/sessions"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/DmitriyRebrykov/BlockWear/internal/auth"
	"github.com/DmitriyRebrykov/BlockWear/internal/config"
	"github.com/DmitriyRebrykov/BlockWear/internal/datamodels/checkout"
	"github.com/DmitriyRebrykov/BlockWear/internal/datamodels/product"
	"github.com/DmitriyRebrykov/BlockWear/internal/datamodels/review"
	"github.com/DmitriyRebrykov/BlockWear/internal/datamodels/user"
	"github.com/DmitriyRebrykov/BlockWear/internal/infra/mq"
	"github.com/DmitriyRebrykov/BlockWear/internal/infra/redis"
	"github.com/DmitriyRebrykov/BlockWear/internal/middleware"
	"github.com/DmitriyRebrykov/BlockWear/internal/payment"
	"github.com/DmitriyRebrykov/BlockWear/internal/repository/mysql"
	"github.com/DmitriyRebrykov/BlockWear/internal/service"
)

const reviewUploadDir = "./web/uploads/reviews"

// RegisterRoutes 注册所有 HTTP 路由
func RegisterRoutes(app *iris.Application, cfg *config.Config) {
	// 初始化基础设施
	db := mysql.Init(&cfg.MySQL)
	redisClient := redis.Init(&cfg.Redis)
	mqConn := mq.Init(&cfg.RabbitMQ)

	sess := sessions.New(sessions.Config{
		Cookie:  cfg.Session.CookieName,
		Expires: time.Duration(cfg.Session.ExpireSeconds) * time.Second,
	})

	// 静态资源与上传目录
	app.HandleDir("/assets", iris.Dir("./web/assets"))
	app.HandleDir("/uploads", iris.Dir("./web/uploads"))

	// 仓储与服务
	userRepo := mysql.NewUserRepository(db)
	productRepo := mysql.NewProductRepository(db)
	categoryRepo := mysql.NewCategoryRepository(db)
	orderRepo := mysql.NewOrderRepository(db)
	reviewRepo := mysql.NewReviewRepository(db)

	provider := payment.NewStripeProvider(&cfg.Stripe)

	userSvc := service.NewUserService(userRepo, &cfg.JWT)
	productSvc := service.NewProductService(productRepo, categoryRepo)
	cartSvc := service.NewCartService(productRepo)
	orderSvc := service.NewOrderService(orderRepo)
	reviewSvc := service.NewReviewService(reviewRepo)
	checkoutSvc := service.NewCheckoutService(db, productRepo, orderRepo, cartSvc, provider, &cfg.Checkout, redisClient, mqConn)

	api := app.Party("/api")

	// 健康检查
	api.Get("/health", func(ctx iris.Context) {
		ctx.JSON(iris.Map{"code": 0, "msg": "ok"})
	})

	// 运行统计
	api.Get("/stats", func(ctx iris.Context) {
		ctx.JSON(iris.Map{"code": 0, "data": service.GetMonitor().GetStats()})
	})

	// 用户注册/登录
	api.Post("/register", func(ctx iris.Context) {
		var req struct {
			Email     string `json:"email"`
			Password  string `json:"password"`
			FirstName string `json:"first_name"`
			LastName  string `json:"last_name"`
		}
		if err := ctx.ReadJSON(&req); err != nil {
			ctx.StopWithJSON(400, iris.Map{"code": 400, "msg": err.Error()})
			return
		}
		u := &user.User{
			Email:     req.Email,
			FirstName: req.FirstName,
			LastName:  req.LastName,
		}
		if _, err := userSvc.Register(ctx.Request().Context(), u, req.Password); err != nil {
			ctx.StopWithJSON(500, iris.Map{"code": 500, "msg": err.Error()})
			return
		}
		ctx.JSON(iris.Map{"code": 0, "data": u})
	})

	api.Post("/login", func(ctx iris.Context) {
		var req struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := ctx.ReadJSON(&req); err != nil {
			ctx.StopWithJSON(400, iris.Map{"code": 400, "msg": err.Error()})
			return
		}
		token, err := userSvc.Login(ctx.Request().Context(), req.Email, req.Password)
		if err != nil {
			ctx.StopWithJSON(401, iris.Map{"code": 401, "msg": err.Error()})
			return
		}
		ctx.JSON(iris.Map{"code": 0, "data": iris.Map{"token": token}})
	})

	bearerToken := func(ctx iris.Context) string {
		return strings.TrimPrefix(ctx.GetHeader("Authorization"), "Bearer ")
	}

	// optionalAuth 解析令牌但不强制登录，购物车和游客下单都走这里
	optionalAuth := func(ctx iris.Context) {
		if token := bearerToken(ctx); token != "" {
			if claims, err := auth.ParseToken(&cfg.JWT, token); err == nil {
				ctx.Values().Set("user_id", claims.UserID)
				ctx.Values().Set("email", claims.Email)
				ctx.Values().Set("is_staff", claims.IsStaff)
			}
		}
		ctx.Next()
	}

	// requireAuth 必须携带合法令牌
	requireAuth := func(ctx iris.Context) {
		token := bearerToken(ctx)
		if token == "" {
			ctx.StopWithJSON(401, iris.Map{"code": 401, "msg": "missing token"})
			return
		}
		claims, err := auth.ParseToken(&cfg.JWT, token)
		if err != nil {
			ctx.StopWithJSON(401, iris.Map{"code": 401, "msg": "invalid token"})
			return
		}
		ctx.Values().Set("user_id", claims.UserID)
		ctx.Values().Set("email", claims.Email)
		ctx.Values().Set("is_staff", claims.IsStaff)
		ctx.Next()
	}

	// requireStaff 管理端入口，必须先过 requireAuth
	requireStaff := func(ctx iris.Context) {
		if !ctx.Values().GetBoolDefault("is_staff", false) {
			ctx.StopWithJSON(403, iris.Map{"code": 403, "msg": "需要管理员权限"})
			return
		}
		ctx.Next()
	}

	isStaff := func(ctx iris.Context) bool {
		return ctx.Values().GetBoolDefault("is_staff", false)
	}

	// currentUserID 从请求值取出登录用户，未登录返回 nil
	currentUserID := func(ctx iris.Context) *int64 {
		id := ctx.Values().GetInt64Default("user_id", 0)
		if id == 0 {
			return nil
		}
		return &id
	}

	// ---------------- 用户资料 ----------------

	api.Get("/profile", requireAuth, func(ctx iris.Context) {
		u, err := userSvc.Profile(ctx.Request().Context(), ctx.Values().GetInt64Default("user_id", 0))
		if err != nil {
			ctx.StopWithJSON(404, iris.Map{"code": 404, "msg": "用户不存在"})
			return
		}
		ctx.JSON(iris.Map{"code": 0, "data": u})
	})

	api.Put("/profile", requireAuth, func(ctx iris.Context) {
		var req struct {
			FirstName  string `json:"first_name"`
			LastName   string `json:"last_name"`
			Phone      string `json:"phone"`
			Address1   string `json:"address1"`
			Address2   string `json:"address2"`
			City       string `json:"city"`
			PostalCode string `json:"postal_code"`
			Country    string `json:"country"`
		}
		if err := ctx.ReadJSON(&req); err != nil {
			ctx.StopWithJSON(400, iris.Map{"code": 400, "msg": err.Error()})
			return
		}
		u, err := userSvc.Profile(ctx.Request().Context(), ctx.Values().GetInt64Default("user_id", 0))
		if err != nil {
			ctx.StopWithJSON(404, iris.Map{"code": 404, "msg": "用户不存在"})
			return
		}
		u.FirstName = req.FirstName
		u.LastName = req.LastName
		u.Phone = req.Phone
		u.Address1 = req.Address1
		u.Address2 = req.Address2
		u.City = req.City
		u.PostalCode = req.PostalCode
		u.Country = req.Country
		if err := userSvc.UpdateProfile(ctx.Request().Context(), u); err != nil {
			ctx.StopWithJSON(500, iris.Map{"code": 500, "msg": err.Error()})
			return
		}
		ctx.JSON(iris.Map{"code": 0, "data": u})
	})

	// ---------------- 商品目录 ----------------

	api.Get("/categories", func(ctx iris.Context) {
		list, err := productSvc.Categories(ctx.Request().Context())
		if err != nil {
			ctx.StopWithJSON(500, iris.Map{"code": 500, "msg": err.Error()})
			return
		}
		ctx.JSON(iris.Map{"code": 0, "data": list})
	})

	api.Get("/products", func(ctx iris.Context) {
		f := product.Filter{
			Color:        ctx.URLParam("color"),
			Name:         ctx.URLParam("q"),
			DiscountOnly: ctx.URLParamBoolDefault("discount", false),
		}
		if v := ctx.URLParam("category"); v != "" {
			f.CategorySlugs = append(f.CategorySlugs, v)
		}
		for _, raw := range ctx.Request().URL.Query()["size"] {
			if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
				f.SizeIDs = append(f.SizeIDs, id)
			}
		}
		if v := ctx.URLParam("price_min"); v != "" {
			if d, err := decimal.NewFromString(v); err == nil {
				f.PriceMin = &d
			}
		}
		if v := ctx.URLParam("price_max"); v != "" {
			if d, err := decimal.NewFromString(v); err == nil {
				f.PriceMax = &d
			}
		}
		list, err := productSvc.List(ctx.Request().Context(), f)
		if err != nil {
			ctx.StopWithJSON(500, iris.Map{"code": 500, "msg": err.Error()})
			return
		}
		ctx.JSON(iris.Map{"code": 0, "data": list})
	})

	api.Get("/products/{id:uint64}", func(ctx iris.Context) {
		pid, _ := ctx.Params().GetUint64("id")
		p, err := productSvc.Get(ctx.Request().Context(), int64(pid))
		if err != nil {
			ctx.StopWithJSON(404, iris.Map{"code": 404, "msg": "商品不存在"})
			return
		}
		stats, _ := reviewSvc.Stats(ctx.Request().Context(), p.ID)
		ctx.JSON(iris.Map{"code": 0, "data": iris.Map{"product": p, "review_stats": stats}})
	})

	// 商品页的规范链接按 slug 访问
	api.Get("/products/slug/{slug:string}", func(ctx iris.Context) {
		p, err := productSvc.GetBySlug(ctx.Request().Context(), ctx.Params().GetString("slug"))
		if err != nil {
			ctx.StopWithJSON(404, iris.Map{"code": 404, "msg": "商品不存在"})
			return
		}
		stats, _ := reviewSvc.Stats(ctx.Request().Context(), p.ID)
		ctx.JSON(iris.Map{"code": 0, "data": iris.Map{"product": p, "review_stats": stats}})
	})

	// 尺码选择器用的分尺码库存
	api.Get("/products/{id:uint64}/sizes", func(ctx iris.Context) {
		pid, _ := ctx.Params().GetUint64("id")
		sizes, err := productSvc.Sizes(ctx.Request().Context(), int64(pid))
		if err != nil {
			ctx.StopWithJSON(500, iris.Map{"code": 500, "msg": err.Error()})
			return
		}
		ctx.JSON(iris.Map{"code": 0, "data": sizes})
	})

	// ---------------- 评论 ----------------

	api.Get("/products/{id:uint64}/reviews", func(ctx iris.Context) {
		pid, _ := ctx.Params().GetUint64("id")
		opts := review.ListOptions{
			Sort:     ctx.URLParamDefault("sort", "recent"),
			Rating:   ctx.URLParamIntDefault("rating", 0),
			Page:     ctx.URLParamIntDefault("page", 1),
			PageSize: ctx.URLParamIntDefault("page_size", 10),
		}
		list, err := reviewSvc.List(ctx.Request().Context(), int64(pid), opts)
		if err != nil {
			ctx.StopWithJSON(500, iris.Map{"code": 500, "msg": err.Error()})
			return
		}
		stats, err := reviewSvc.Stats(ctx.Request().Context(), int64(pid))
		if err != nil {
			ctx.StopWithJSON(500, iris.Map{"code": 500, "msg": err.Error()})
			return
		}
		ctx.JSON(iris.Map{"code": 0, "data": iris.Map{"reviews": list, "stats": stats}})
	})

	api.Post("/products/{id:uint64}/reviews", middleware.ReviewRateLimit(), requireAuth, func(ctx iris.Context) {
		pid, _ := ctx.Params().GetUint64("id")
		userID := ctx.Values().GetInt64Default("user_id", 0)

		rating, _ := strconv.Atoi(ctx.FormValue("rating"))
		title := ctx.FormValue("title")
		content := ctx.FormValue("content")

		uploads, err := readUploadedImages(ctx)
		if err != nil {
			ctx.StopWithJSON(400, iris.Map{"code": 400, "msg": err.Error()})
			return
		}
		if err := service.ValidateReviewImages(uploads); err != nil {
			ctx.StopWithJSON(400, iris.Map{"code": 400, "msg": err.Error()})
			return
		}
		paths, err := storeUploadedImages(uploads)
		if err != nil {
			zap.L().Error("store review images failed", zap.Error(err))
			ctx.StopWithJSON(500, iris.Map{"code": 500, "msg": "图片保存失败"})
			return
		}

		rev, err := reviewSvc.Create(ctx.Request().Context(), int64(pid), userID, rating, title, content, paths)
		if err != nil {
			status := 400
			if errors.Is(err, review.ErrDuplicateReview) {
				status = 409
			}
			ctx.StopWithJSON(status, iris.Map{"code": status, "msg": err.Error()})
			return
		}
		ctx.JSON(iris.Map{"code": 0, "data": rev})
	})

	api.Put("/reviews/{id:uint64}", requireAuth, func(ctx iris.Context) {
		rid, _ := ctx.Params().GetUint64("id")
		userID := ctx.Values().GetInt64Default("user_id", 0)
		var req struct {
			Rating  int    `json:"rating"`
			Title   string `json:"title"`
			Content string `json:"content"`
		}
		if err := ctx.ReadJSON(&req); err != nil {
			ctx.StopWithJSON(400, iris.Map{"code": 400, "msg": err.Error()})
			return
		}
		rev, err := reviewSvc.Edit(ctx.Request().Context(), int64(rid), userID, req.Rating, req.Title, req.Content)
		if err != nil {
			status := 400
			switch {
			case errors.Is(err, review.ErrNotAuthor):
				status = 403
			case errors.Is(err, review.ErrEditWindowClosed):
				status = 409
			}
			ctx.StopWithJSON(status, iris.Map{"code": status, "msg": err.Error()})
			return
		}
		ctx.JSON(iris.Map{"code": 0, "data": rev})
	})

	api.Delete("/reviews/{id:uint64}", requireAuth, func(ctx iris.Context) {
		rid, _ := ctx.Params().GetUint64("id")
		userID := ctx.Values().GetInt64Default("user_id", 0)
		if err := reviewSvc.Delete(ctx.Request().Context(), int64(rid), userID, isStaff(ctx)); err != nil {
			status := 400
			if errors.Is(err, review.ErrNotAuthor) {
				status = 403
			}
			ctx.StopWithJSON(status, iris.Map{"code": status, "msg": err.Error()})
			return
		}
		ctx.JSON(iris.Map{"code": 0, "msg": "deleted"})
	})

	api.Post("/reviews/{id:uint64}/helpful", requireAuth, func(ctx iris.Context) {
		rid, _ := ctx.Params().GetUint64("id")
		userID := ctx.Values().GetInt64Default("user_id", 0)
		voted, count, err := reviewSvc.MarkHelpful(ctx.Request().Context(), int64(rid), userID)
		if err != nil {
			status := 400
			if errors.Is(err, review.ErrSelfVote) {
				status = 403
			}
			ctx.StopWithJSON(status, iris.Map{"code": status, "msg": err.Error()})
			return
		}
		action := "removed"
		if voted {
			action = "added"
		}
		ctx.JSON(iris.Map{"code": 0, "data": iris.Map{"action": action, "helpful_count": count}})
	})

	// ---------------- 购物车 ----------------

	cartAPI := api.Party("/cart", optionalAuth)

	cartAPI.Get("/", func(ctx iris.Context) {
		view, err := cartSvc.Detail(ctx.Request().Context(), sess.Start(ctx))
		if err != nil {
			ctx.StopWithJSON(500, iris.Map{"code": 500, "msg": err.Error()})
			return
		}
		ctx.JSON(iris.Map{"code": 0, "data": view})
	})

	type cartReq struct {
		ProductID int64 `json:"product_id"`
		SizeID    int64 `json:"size_id"`
		Quantity  int64 `json:"quantity"`
	}

	cartAPI.Post("/add", func(ctx iris.Context) {
		var req cartReq
		if err := ctx.ReadJSON(&req); err != nil {
			ctx.StopWithJSON(400, iris.Map{"code": 400, "msg": err.Error()})
			return
		}
		if req.Quantity == 0 {
			req.Quantity = 1
		}
		if err := cartSvc.Add(ctx.Request().Context(), sess.Start(ctx), req.ProductID, req.SizeID, req.Quantity, false); err != nil {
			status := 400
			if errors.Is(err, product.ErrNotEnoughStock) {
				status = 409
			}
			ctx.StopWithJSON(status, iris.Map{"code": status, "msg": err.Error()})
			return
		}
		ctx.JSON(iris.Map{"code": 0, "msg": "added"})
	})

	cartAPI.Post("/update", func(ctx iris.Context) {
		var req cartReq
		if err := ctx.ReadJSON(&req); err != nil {
			ctx.StopWithJSON(400, iris.Map{"code": 400, "msg": err.Error()})
			return
		}
		if err := cartSvc.Add(ctx.Request().Context(), sess.Start(ctx), req.ProductID, req.SizeID, req.Quantity, true); err != nil {
			status := 400
			if errors.Is(err, product.ErrNotEnoughStock) {
				status = 409
			}
			ctx.StopWithJSON(status, iris.Map{"code": status, "msg": err.Error()})
			return
		}
		ctx.JSON(iris.Map{"code": 0, "msg": "updated"})
	})

	cartAPI.Post("/remove", func(ctx iris.Context) {
		var req cartReq
		if err := ctx.ReadJSON(&req); err != nil {
			ctx.StopWithJSON(400, iris.Map{"code": 400, "msg": err.Error()})
			return
		}
		cartSvc.Remove(sess.Start(ctx), req.ProductID, req.SizeID)
		ctx.JSON(iris.Map{"code": 0, "msg": "removed"})
	})

	cartAPI.Post("/clear", func(ctx iris.Context) {
		cartSvc.Clear(sess.Start(ctx))
		ctx.JSON(iris.Map{"code": 0, "msg": "cleared"})
	})

	// ---------------- 结算与支付 ----------------

	checkoutAPI := api.Party("/checkout", optionalAuth)

	checkoutAPI.Post("/", func(ctx iris.Context) {
		var form checkout.Form
		if err := ctx.ReadJSON(&form); err != nil {
			ctx.StopWithJSON(400, iris.Map{"code": 400, "msg": err.Error()})
			return
		}
		draft, err := checkoutSvc.Begin(ctx.Request().Context(), sess.Start(ctx), form)
		if err != nil {
			ctx.StopWithJSON(400, iris.Map{"code": 400, "msg": err.Error()})
			return
		}
		ctx.JSON(iris.Map{"code": 0, "data": iris.Map{
			"amounts":           draft.Amounts,
			"payment_intent_id": draft.PaymentIntentID,
		}})
	})

	checkoutAPI.Get("/payment", func(ctx iris.Context) {
		secret, err := checkoutSvc.ClientSecret(ctx.Request().Context(), sess.Start(ctx))
		if err != nil {
			ctx.StopWithJSON(400, iris.Map{"code": 400, "msg": err.Error()})
			return
		}
		ctx.JSON(iris.Map{"code": 0, "data": iris.Map{
			"client_secret": secret,
			"public_key":    cfg.Stripe.PublicKey,
		}})
	})

	checkoutAPI.Post("/success", func(ctx iris.Context) {
		s := sess.Start(ctx)
		o, err := checkoutSvc.Confirm(ctx.Request().Context(), s, currentUserID(ctx))
		if err != nil {
			ctx.StopWithJSON(400, iris.Map{"code": 400, "msg": err.Error()})
			return
		}
		// 游客通过会话里的下单邮箱访问确认页
		s.Set("guest_order_email", o.Email)
		ctx.JSON(iris.Map{"code": 0, "data": iris.Map{
			"order_id":     o.ID,
			"order_number": o.OrderNumber,
			"status":       o.Status,
			"total_amount": o.TotalAmount,
		}})
	})

	// ---------------- 订单 ----------------

	api.Get("/orders", requireAuth, func(ctx iris.Context) {
		userID := ctx.Values().GetInt64Default("user_id", 0)
		list, err := orderSvc.ListByUser(ctx.Request().Context(), userID)
		if err != nil {
			ctx.StopWithJSON(500, iris.Map{"code": 500, "msg": err.Error()})
			return
		}
		ctx.JSON(iris.Map{"code": 0, "data": list})
	})

	api.Get("/orders/{id:uint64}", optionalAuth, func(ctx iris.Context) {
		oid, _ := ctx.Params().GetUint64("id")
		s := sess.Start(ctx)
		o, err := orderSvc.Confirmation(ctx.Request().Context(), int64(oid), currentUserID(ctx), isStaff(ctx), s.GetString("guest_order_email"))
		if err != nil {
			status := 404
			if errors.Is(err, service.ErrOrderAccessDenied) {
				status = 403
			}
			ctx.StopWithJSON(status, iris.Map{"code": status, "msg": err.Error()})
			return
		}
		ctx.JSON(iris.Map{"code": 0, "data": o})
	})

	// ---------------- 管理端 ----------------

	adminAPI := api.Party("/admin", requireAuth, requireStaff)

	adminAPI.Get("/orders", func(ctx iris.Context) {
		list, err := orderSvc.ListRecent(ctx.Request().Context(), ctx.URLParamIntDefault("limit", 20))
		if err != nil {
			ctx.StopWithJSON(500, iris.Map{"code": 500, "msg": err.Error()})
			return
		}
		ctx.JSON(iris.Map{"code": 0, "data": list})
	})

	// ---------------- 支付回调 ----------------

	api.Post("/stripe/webhook", middleware.WebhookRateLimit(), func(ctx iris.Context) {
		payload, err := ctx.GetBody()
		if err != nil {
			ctx.StopWithStatus(400)
			return
		}
		ev, err := provider.ParseWebhook(payload, ctx.GetHeader("Stripe-Signature"))
		if err != nil {
			service.GetMonitor().RecordWebhookError()
			zap.L().Warn("webhook rejected", zap.Error(err))
			ctx.StopWithStatus(400)
			return
		}
		if err := checkoutSvc.HandleWebhook(ctx.Request().Context(), ev); err != nil {
			service.GetMonitor().RecordWebhookError()
			zap.L().Error("webhook handling failed", zap.String("event", ev.ID), zap.Error(err))
			// 返回 500 让网关按重试策略再投递
			ctx.StopWithStatus(500)
			return
		}
		ctx.StatusCode(200)
	})
}

// readUploadedImages 读取 multipart 表单里的评论配图
func readUploadedImages(ctx iris.Context) ([]service.ImageUpload, error) {
	form := ctx.Request().MultipartForm
	if form == nil {
		if err := ctx.Request().ParseMultipartForm(32 << 20); err != nil {
			// 没有图片时允许空表单
			return nil, nil
		}
		form = ctx.Request().MultipartForm
	}
	if form == nil {
		return nil, nil
	}

	var uploads []service.ImageUpload
	for _, fh := range form.File["images"] {
		f, err := fh.Open()
		if err != nil {
			return nil, err
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, err
		}
		uploads = append(uploads, service.ImageUpload{Name: fh.Filename, Data: data})
	}
	return uploads, nil
}

// storeUploadedImages 校验通过后把配图落盘，文件名用 uuid 避免冲突
func storeUploadedImages(uploads []service.ImageUpload) ([]string, error) {
	if len(uploads) == 0 {
		return nil, nil
	}
	if err := os.MkdirAll(reviewUploadDir, 0o755); err != nil {
		return nil, err
	}
	paths := make([]string, 0, len(uploads))
	for _, up := range uploads {
		name := uuid.NewString() + filepath.Ext(up.Name)
		full := filepath.Join(reviewUploadDir, name)
		if err := os.WriteFile(full, up.Data, 0o644); err != nil {
			return nil, err
		}
		paths = append(paths, "/uploads/reviews/"+name)
	}
	return paths, nil
}
