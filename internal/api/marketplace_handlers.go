package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/kartr/kartr/api/types"
	"github.com/kartr/kartr/internal/store"
)

func (s *Server) listVirtualInfluencers(c echo.Context) error {
	return c.JSON(http.StatusOK, s.Marketplace.Influencers())
}

func (s *Server) virtualInfluencer(c echo.Context) error {
	vi, err := s.Marketplace.Influencer(c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, vi)
}

func (s *Server) rent(c echo.Context) error {
	req := types.RentalRequest{}
	if err := bind(c, &req); err != nil {
		return err
	}
	conf, err := s.Marketplace.Rent(c.Request().Context(), userID(c), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, conf)
}

func (s *Server) rentals(c echo.Context) error {
	out, err := s.Marketplace.Rentals(c.Request().Context(), userID(c))
	if err != nil {
		return err
	}
	if out == nil {
		out = []store.Rental{}
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) campaignMetrics(c echo.Context) error {
	m, err := s.Marketplace.CampaignMetrics(c.Request().Context(), userID(c), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, m)
}

func (s *Server) listAgents(c echo.Context) error {
	return c.JSON(http.StatusOK, s.Marketplace.Agents())
}

func (s *Server) agent(c echo.Context) error {
	a, err := s.Marketplace.Agent(c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, a)
}

func (s *Server) subscribe(c echo.Context) error {
	req := types.SubscriptionRequest{}
	if err := bind(c, &req); err != nil {
		return err
	}
	conf, err := s.Marketplace.Subscribe(c.Request().Context(), userID(c), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, conf)
}

func (s *Server) subscriptions(c echo.Context) error {
	out, err := s.Marketplace.Subscriptions(c.Request().Context(), userID(c))
	if err != nil {
		return err
	}
	if out == nil {
		out = []store.Subscription{}
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) performanceReport(c echo.Context) error {
	r, err := s.Marketplace.PerformanceReport(c.Request().Context(), userID(c), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, r)
}
