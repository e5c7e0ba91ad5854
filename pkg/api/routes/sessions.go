package routes

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/liip/sheriff"
	"github.com/rs/zerolog/log"
	"github.com/travigo/busdelay/pkg/loop"
	"github.com/travigo/busdelay/pkg/model"
	"github.com/travigo/busdelay/pkg/session"
	"github.com/travigo/busdelay/pkg/tripquery"
)

const requestTimeout = 30 * time.Second

type textInput struct {
	Text string `json:"text"`
}

type serviceInput struct {
	Label string `json:"label"`
}

type stopInput struct {
	Stop string `json:"stop"`
}

type directionInput struct {
	Direction string `json:"direction"`
}

type dateInput struct {
	Date string `json:"date"`
}

type timeInput struct {
	Time string `json:"time"`
}

type sessionsRouter struct {
	manager *session.Manager
}

func SessionsRouter(router fiber.Router, manager *session.Manager) {
	s := sessionsRouter{manager: manager}

	router.Post("/", s.create)
	router.Get("/:id", s.withSession(s.view))
	router.Delete("/:id", s.delete)

	router.Post("/:id/services/query", s.withSession(s.queryServices))
	router.Post("/:id/services/select", s.withSession(s.selectService))
	router.Post("/:id/stops/query", s.withSession(s.queryStops))
	router.Post("/:id/stops/select", s.withSession(s.selectStop))
	router.Post("/:id/direction", s.withSession(s.setDirection))
	router.Post("/:id/date", s.withSession(s.setDate))
	router.Post("/:id/time", s.withSession(s.setTime))
	router.Post("/:id/reset", s.withSession(s.reset))
	router.Post("/:id/retry", s.withSession(s.retry))
}

type sessionHandler func(ctx context.Context, c *fiber.Ctx, sess *session.Session) error

func (s sessionsRouter) withSession(handler sessionHandler) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		c.Locals("session", id)

		sess, ok := s.manager.Get(id)
		if !ok {
			c.SendStatus(fiber.StatusNotFound)
			return c.JSON(fiber.Map{
				"error": "Could not find session matching identifier",
			})
		}

		ctx, cancel := context.WithTimeout(c.UserContext(), requestTimeout)
		defer cancel()

		if err := handler(ctx, c, sess); err != nil {
			return sendError(c, err)
		}

		return sendView(ctx, c, sess)
	}
}

func (s sessionsRouter) create(c *fiber.Ctx) error {
	id, sess, err := s.manager.Create()
	if err != nil {
		c.SendStatus(fiber.StatusInternalServerError)
		return c.JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	c.Locals("session", id)

	view, err := sess.View(c.UserContext())
	if err != nil {
		return sendError(c, err)
	}

	reduced, err := reduceView(c, view)
	if err != nil {
		return sendError(c, err)
	}

	c.Status(fiber.StatusCreated)
	return c.JSON(fiber.Map{
		"id":      id,
		"session": reduced,
	})
}

func (s sessionsRouter) delete(c *fiber.Ctx) error {
	if !s.manager.Delete(c.Params("id")) {
		c.SendStatus(fiber.StatusNotFound)
		return c.JSON(fiber.Map{
			"error": "Could not find session matching identifier",
		})
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (s sessionsRouter) view(context.Context, *fiber.Ctx, *session.Session) error {
	return nil
}

func (s sessionsRouter) queryServices(ctx context.Context, c *fiber.Ctx, sess *session.Session) error {
	var input textInput
	if err := c.BodyParser(&input); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	return sess.TypeService(ctx, input.Text)
}

func (s sessionsRouter) selectService(ctx context.Context, c *fiber.Ctx, sess *session.Session) error {
	var input serviceInput
	if err := c.BodyParser(&input); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	return sess.PickService(ctx, input.Label)
}

func (s sessionsRouter) queryStops(ctx context.Context, c *fiber.Ctx, sess *session.Session) error {
	var input textInput
	if err := c.BodyParser(&input); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	return sess.TypeStop(ctx, input.Text)
}

func (s sessionsRouter) selectStop(ctx context.Context, c *fiber.Ctx, sess *session.Session) error {
	var input stopInput
	if err := c.BodyParser(&input); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	return sess.PickStop(ctx, input.Stop)
}

func (s sessionsRouter) setDirection(ctx context.Context, c *fiber.Ctx, sess *session.Session) error {
	var input directionInput
	if err := c.BodyParser(&input); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	direction, err := model.ParseDirection(input.Direction)
	if err != nil {
		return fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
	}

	return sess.SetDirection(ctx, direction)
}

func (s sessionsRouter) setDate(ctx context.Context, c *fiber.Ctx, sess *session.Session) error {
	var input dateInput
	if err := c.BodyParser(&input); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	date, err := model.ParseDate(input.Date)
	if err != nil {
		return fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
	}

	return sess.SetDate(ctx, date)
}

func (s sessionsRouter) setTime(ctx context.Context, c *fiber.Ctx, sess *session.Session) error {
	var input timeInput
	if err := c.BodyParser(&input); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	timeOfDay, err := model.ParseTimeOfDay(input.Time)
	if err != nil {
		return fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
	}

	return sess.SetTime(ctx, timeOfDay)
}

func (s sessionsRouter) reset(ctx context.Context, _ *fiber.Ctx, sess *session.Session) error {
	return sess.Reset(ctx)
}

func (s sessionsRouter) retry(ctx context.Context, _ *fiber.Ctx, sess *session.Session) error {
	return sess.Retry(ctx)
}

func statusFor(err error) int {
	var fiberError *fiber.Error

	switch {
	case errors.As(err, &fiberError):
		return fiberError.Code
	case errors.Is(err, loop.ErrClosed):
		return fiber.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return fiber.StatusGatewayTimeout
	case errors.Is(err, session.ErrUnknownService),
		errors.Is(err, tripquery.ErrNoService),
		errors.Is(err, tripquery.ErrRouteNotResolved),
		errors.Is(err, tripquery.ErrStopNotOnRoute),
		errors.Is(err, tripquery.ErrInvalidDirection),
		errors.Is(err, tripquery.ErrInvalidDate),
		errors.Is(err, tripquery.ErrInvalidTime):
		return fiber.StatusUnprocessableEntity
	default:
		return fiber.StatusInternalServerError
	}
}

func sendError(c *fiber.Ctx, err error) error {
	status := statusFor(err)
	if status >= fiber.StatusInternalServerError {
		log.Error().Err(err).Interface("session", c.Locals("session")).Msg("Session request failed")
	}

	c.SendStatus(status)
	return c.JSON(fiber.Map{
		"error": err.Error(),
	})
}

func reduceView(c *fiber.Ctx, view session.View) (interface{}, error) {
	groups := []string{"basic"}
	if c.Query("detail") == "full" {
		groups = append(groups, "detailed")
	}

	return sheriff.Marshal(&sheriff.Options{
		Groups: groups,
	}, view)
}

func sendView(ctx context.Context, c *fiber.Ctx, sess *session.Session) error {
	view, err := sess.View(ctx)
	if err != nil {
		return sendError(c, err)
	}

	reduced, err := reduceView(c, view)
	if err != nil {
		c.SendStatus(fiber.StatusInternalServerError)
		return c.JSON(fiber.Map{
			"error": "Sheriff could not reduce session view",
		})
	}

	return c.JSON(reduced)
}
