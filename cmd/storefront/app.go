package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"urbanharvest/internal/api"
	"urbanharvest/internal/cart"
	"urbanharvest/internal/checkout"
	"urbanharvest/internal/reviews"
	"urbanharvest/internal/session"
	"urbanharvest/internal/storage"
	"urbanharvest/internal/validation"
)

var errUsage = errors.New("usage: storefront <login|signup|logout|whoami|categories|products|cart|checkout|reviews|history> [flags]")

type app struct {
	out io.Writer

	client   *api.Client
	session  *session.Manager
	cart     *cart.Store
	checkout *checkout.Flow
	reviews  *reviews.Composer
}

func newApp(out io.Writer, store storage.Storage, baseURL string) (*app, error) {
	tokens := session.NewTokenStore(store)

	client, err := api.New(api.Config{BaseURL: baseURL, Tokens: tokens})
	if err != nil {
		return nil, err
	}

	sess := session.NewManager(client, tokens)
	carts := cart.New(store)
	sess.Subscribe(carts)

	return &app{
		out:      out,
		client:   client,
		session:  sess,
		cart:     carts,
		checkout: checkout.New(sess, carts, client),
		reviews:  reviews.NewComposer(client, sess),
	}, nil
}

// run restores the stored session, then executes one command.
func (a *app) run(ctx context.Context, args []string) error {
	a.session.Restore(ctx)
	<-a.session.Ready()

	if len(args) == 0 {
		return errUsage
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "login":
		return a.login(ctx, rest)
	case "signup":
		return a.signup(ctx, rest)
	case "logout":
		a.session.Logout()
		fmt.Fprintln(a.out, "Logged out.")
		return nil
	case "whoami":
		return a.whoami()
	case "categories":
		return a.categories(ctx)
	case "products":
		return a.products(ctx, rest)
	case "cart":
		return a.cartCmd(ctx, rest)
	case "checkout":
		return a.checkoutCmd(ctx, rest)
	case "reviews":
		return a.reviewsCmd(ctx, rest)
	case "history":
		return a.history(ctx, rest)
	default:
		return fmt.Errorf("unknown command %q\n%w", cmd, errUsage)
	}
}

func (a *app) login(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	if err := fs.Parse(args); err != nil {
		return err
	}

	user, err := a.session.Login(ctx, *email, *password)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Welcome back, %s.\n", user.Name)
	return nil
}

func (a *app) signup(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("signup", flag.ContinueOnError)
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	name := fs.String("name", "", "display name")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if err := a.session.Signup(ctx, *email, *password, *name); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Account created. Log in to continue.")
	return nil
}

func (a *app) whoami() error {
	user := a.session.User()
	if user == nil {
		fmt.Fprintln(a.out, "Browsing as guest.")
		return nil
	}
	fmt.Fprintf(a.out, "%s <%s> (%s)\n", user.Name, user.Email, user.Role)
	return nil
}

func (a *app) categories(ctx context.Context) error {
	names, err := a.client.ListCategories(ctx)
	if err != nil {
		return err
	}
	for _, name := range names {
		fmt.Fprintln(a.out, name)
	}
	return nil
}

func (a *app) products(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("products", flag.ContinueOnError)
	category := fs.String("category", "", "filter by category")
	search := fs.String("search", "", "search by name")
	if err := fs.Parse(args); err != nil {
		return err
	}

	products, err := a.client.ListProducts(ctx, *category, *search)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tCATEGORY\tPRICE\tSTOCK")
	for _, p := range products {
		price := fmt.Sprintf("%.2f", p.UnitPrice())
		if p.IsOnSale {
			price += fmt.Sprintf(" (was %.2f)", p.Price)
		}
		stock := "in stock"
		if !p.InStock {
			stock = "sold out"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", p.ID, p.Name, p.Category, price, stock)
	}
	return w.Flush()
}

func (a *app) cartCmd(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return a.printCart()
	}

	fs := flag.NewFlagSet("cart "+args[0], flag.ContinueOnError)
	id := fs.String("id", "", "product id")
	qty := fs.Int("qty", 1, "quantity")
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}

	var err error
	switch args[0] {
	case "add":
		var product api.Product
		product, err = a.client.GetProduct(ctx, *id)
		if err != nil {
			return err
		}
		err = a.cart.AddToCart(cart.FromAPI(product), *qty)
	case "remove":
		err = a.cart.RemoveFromCart(*id)
	case "set":
		err = a.cart.UpdateQuantity(*id, *qty)
	case "clear":
		err = a.cart.ClearCart()
	default:
		return fmt.Errorf("unknown cart action %q (add, remove, set, clear)", args[0])
	}
	if err != nil {
		return err
	}
	return a.printCart()
}

func (a *app) printCart() error {
	items := a.cart.Items()
	if len(items) == 0 {
		fmt.Fprintln(a.out, "Your cart is empty.")
		return nil
	}

	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tQTY\tPRICE\tSUBTOTAL")
	for _, it := range items {
		fmt.Fprintf(w, "%s\t%s\t%d\t%.2f\t%.2f\n", it.ID, it.Name, it.Quantity, it.Price, it.Price*float64(it.Quantity))
	}
	fmt.Fprintf(w, "\t\t%d\t\t%.2f\n", a.cart.Count(), a.cart.Total())
	return w.Flush()
}

func (a *app) checkoutCmd(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("checkout", flag.ContinueOnError)
	name := fs.String("name", "", "recipient name")
	phone := fs.String("phone", "", "recipient phone (10 digits)")
	address := fs.String("address", "", "delivery address")
	payment := fs.String("payment", "card", "payment method: card or cod")
	if err := fs.Parse(args); err != nil {
		return err
	}

	conf, err := a.checkout.Submit(ctx, checkout.Form{
		RecipientName:   *name,
		RecipientPhone:  *phone,
		DeliveryAddress: *address,
		PaymentMethod:   *payment,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Order %s placed. Total: %.2f\n", conf.OrderID, conf.Total)
	return nil
}

func (a *app) reviewsCmd(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("usage: storefront reviews <list|add|edit|delete> -product ID [flags]")
	}

	fs := flag.NewFlagSet("reviews "+args[0], flag.ContinueOnError)
	productID := fs.String("product", "", "product id")
	reviewID := fs.String("id", "", "review id (edit, delete)")
	rating := fs.Int("rating", 5, "rating from 1 to 5")
	comment := fs.String("comment", "", "review text, at most 100 words")
	limit := fs.Int("limit", reviews.DefaultPageSize, "reviews per page")
	all := fs.Bool("all", false, "list every page")
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}
	if *productID == "" {
		return errors.New("-product is required")
	}

	switch args[0] {
	case "list":
		pager := reviews.NewPager(a.client, *productID, *limit)
		for pager.HasMore() {
			page, err := pager.Next(ctx)
			if err != nil {
				return err
			}
			for _, r := range page {
				fmt.Fprintf(a.out, "[%s] %d/5 %s: %s\n", r.ID, r.Rating, r.UserName, r.Comment)
			}
			if !*all {
				break
			}
		}
		fmt.Fprintf(a.out, "%d of %d reviews shown\n", len(pager.Loaded()), pager.Total())
		return nil
	case "add":
		r, err := a.reviews.Create(ctx, *productID, api.ReviewInput{Rating: *rating, Comment: *comment})
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Review %s posted.\n", r.ID)
		return nil
	case "edit", "delete":
		existing, err := a.findReview(ctx, *productID, *reviewID)
		if err != nil {
			return err
		}
		if args[0] == "delete" {
			if err := a.reviews.Delete(ctx, existing); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "Review deleted.")
			return nil
		}
		r, err := a.reviews.Update(ctx, existing, api.ReviewInput{Rating: *rating, Comment: *comment})
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Review %s updated.\n", r.ID)
		return nil
	default:
		return fmt.Errorf("unknown reviews action %q (list, add, edit, delete)", args[0])
	}
}

func (a *app) findReview(ctx context.Context, productID, reviewID string) (api.Review, error) {
	pager := reviews.NewPager(a.client, productID, 50)
	for pager.HasMore() {
		page, err := pager.Next(ctx)
		if err != nil {
			return api.Review{}, err
		}
		for _, r := range page {
			if r.ID == reviewID {
				return r, nil
			}
		}
	}
	return api.Review{}, fmt.Errorf("review %s not found on product %s", reviewID, productID)
}

func (a *app) history(ctx context.Context, args []string) error {
	if a.session.User() == nil {
		return checkout.ErrLoginRequired
	}
	kind := "orders"
	if len(args) > 0 {
		kind = args[0]
	}

	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	switch kind {
	case "orders":
		orders, err := a.client.UserOrders(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, "ORDER\tDATE\tSTATUS\tITEMS\tTOTAL")
		for _, o := range orders {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%.2f\n", o.ID, o.CreatedAt.Format("2006-01-02"), o.Status, len(o.Items), o.TotalPrice)
		}
	case "events":
		events, err := a.client.UserEvents(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, "EVENT\tDATE\tLOCATION\tTICKETS")
		for _, e := range events {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", e.Title, e.Date.Format("2006-01-02"), e.Location, e.Tickets)
		}
	case "workshops":
		workshops, err := a.client.UserWorkshops(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, "WORKSHOP\tDATE\tINSTRUCTOR\tSEATS")
		for _, ws := range workshops {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", ws.Title, ws.Date.Format("2006-01-02"), ws.Instructor, ws.Seats)
		}
	case "subscriptions":
		subs, err := a.client.UserSubscriptions(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, "PLAN\tFREQUENCY\tPRICE\tSTATUS\tSINCE")
		for _, s := range subs {
			fmt.Fprintf(w, "%s\t%s\t%.2f\t%s\t%s\n", s.PlanName, s.Frequency, s.Price, s.Status, s.StartDate.Format("2006-01-02"))
		}
	default:
		return fmt.Errorf("unknown history %q (orders, events, workshops, subscriptions)", kind)
	}
	return w.Flush()
}

// describe turns an error into the text shown to the customer.
func describe(err error) string {
	var verrs checkout.ValidationErrors
	if errors.As(err, &verrs) {
		return fieldLines(verrs)
	}
	var fieldErrs validation.FieldErrors
	if errors.As(err, &fieldErrs) {
		return fieldLines(fieldErrs)
	}

	switch {
	case errors.Is(err, checkout.ErrLoginRequired), errors.Is(err, reviews.ErrLoginRequired):
		return "Please log in first."
	case errors.Is(err, context.Canceled):
		return "Cancelled."
	}

	var authErr *session.AuthError
	if errors.As(err, &authErr) {
		return authErr.Message
	}
	var submitErr *checkout.SubmitError
	if errors.As(err, &submitErr) {
		return submitErr.Message
	}
	return api.Message(err, err.Error())
}

func fieldLines(fields map[string]string) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, fields[k])
	}
	return strings.Join(lines, "\n")
}
