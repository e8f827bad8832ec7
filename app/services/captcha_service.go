package services

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/wenlng/go-captcha/v2/rotate"
	xdraw "golang.org/x/image/draw"
)

// CaptchaService guards the admin login with a rotate captcha.
//
// Flow:
// - Generate: returns a challenge ID and two base64 images (master and thumb)
// - Verify: validates a user-provided angle against the stored target angle with tolerance
// - Challenges are consumed on first verification, successful or not
type CaptchaService interface {
	GenerateRotate(ctx context.Context) (*RotateChallenge, error)
	VerifyRotate(ctx context.Context, challengeID string, userAngle float64) bool
}

type RotateChallenge struct {
	ID                string
	MasterImageBase64 string
	ThumbImageBase64  string
}

// ChallengeStore keeps target angles between generate and verify
type ChallengeStore interface {
	Set(ctx context.Context, id string, angle int, ttl time.Duration) error
	// Take returns and removes the angle in one step
	Take(ctx context.Context, id string) (int, bool, error)
}

type captchaServiceImpl struct {
	rotator rotate.Captcha
	store   ChallengeStore
	ttl     time.Duration
	padding int // tolerance for angle validation
}

// NewCaptchaServiceRotate constructs a CaptchaService using rotate mode.
// padding is the accepted angle difference in degrees; imgSizePx the square image size.
func NewCaptchaServiceRotate(store ChallengeStore, ttl time.Duration, padding int, imgSizePx int) (CaptchaService, error) {
	if store == nil {
		return nil, errors.New("captcha challenge store is required")
	}
	if imgSizePx <= 0 {
		imgSizePx = 220
	}
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}

	builder := rotate.NewBuilder(
		rotate.WithImageSquareSize(imgSizePx),
	)
	builder.SetResources(
		rotate.WithImages(generateRotateBackgrounds(3, imgSizePx)),
	)

	return &captchaServiceImpl{
		rotator: builder.Make(),
		store:   store,
		ttl:     ttl,
		padding: padding,
	}, nil
}

func (s *captchaServiceImpl) GenerateRotate(ctx context.Context) (*RotateChallenge, error) {
	captData, err := s.rotator.Generate()
	if err != nil {
		return nil, err
	}

	block := captData.GetData()
	if block == nil {
		return nil, errors.New("captcha generator returned no data")
	}

	masterB64, err := captData.GetMasterImage().ToBase64()
	if err != nil {
		return nil, err
	}
	thumbB64, err := captData.GetThumbImage().ToBase64()
	if err != nil {
		return nil, err
	}

	challengeID := uuid.New().String()
	if err := s.store.Set(ctx, challengeID, block.Angle, s.ttl); err != nil {
		return nil, fmt.Errorf("failed to store captcha challenge: %w", err)
	}

	return &RotateChallenge{
		ID:                challengeID,
		MasterImageBase64: masterB64,
		ThumbImageBase64:  thumbB64,
	}, nil
}

func (s *captchaServiceImpl) VerifyRotate(ctx context.Context, challengeID string, userAngle float64) bool {
	target, ok, err := s.store.Take(ctx, challengeID)
	if err != nil || !ok {
		return false
	}

	// Round user-provided angle to integer degrees expected by validator
	return rotate.Validate(int(math.Round(userAngle)), target, s.padding)
}

// --- Redis store ---

type RedisChallengeStore struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisChallengeStore(client redis.UniversalClient, prefix string) *RedisChallengeStore {
	return &RedisChallengeStore{client: client, prefix: prefix}
}

func (s *RedisChallengeStore) Set(ctx context.Context, id string, angle int, ttl time.Duration) error {
	return s.client.Set(ctx, s.prefix+id, angle, ttl).Err()
}

func (s *RedisChallengeStore) Take(ctx context.Context, id string) (int, bool, error) {
	val, err := s.client.GetDel(ctx, s.prefix+id).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	angle, err := strconv.Atoi(val)
	if err != nil {
		return 0, false, fmt.Errorf("corrupt captcha challenge %s: %w", id, err)
	}
	return angle, true, nil
}

// --- In-memory store with TTL ---

type storeEntry struct {
	targetAngle int
	expiresAt   time.Time
}

// MemoryChallengeStore is used when Redis is not configured; it only works for a single replica
type MemoryChallengeStore struct {
	mu sync.Mutex
	m  map[string]storeEntry
}

func NewMemoryChallengeStore() *MemoryChallengeStore {
	return &MemoryChallengeStore{m: make(map[string]storeEntry)}
}

func (s *MemoryChallengeStore) Set(ctx context.Context, id string, angle int, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for k, v := range s.m {
		if now.After(v.expiresAt) {
			delete(s.m, k)
		}
	}
	s.m[id] = storeEntry{targetAngle: angle, expiresAt: now.Add(ttl)}
	return nil
}

func (s *MemoryChallengeStore) Take(ctx context.Context, id string) (int, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.m[id]
	if !ok {
		return 0, false, nil
	}
	delete(s.m, id)
	if time.Now().After(e.expiresAt) {
		return 0, false, nil
	}
	return e.targetAngle, true, nil
}

// --- Backgrounds: small noise tiles scaled up to the captcha size ---

const backgroundTilePx = 48

func generateRotateBackgrounds(n int, size int) []image.Image {
	if n <= 0 {
		n = 1
	}
	imgs := make([]image.Image, 0, n)
	for i := 0; i < n; i++ {
		imgs = append(imgs, scaleImage(newNoiseGradientImage(backgroundTilePx, backgroundTilePx), size))
	}
	return imgs
}

func scaleImage(src image.Image, size int) image.Image {
	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Over, nil)
	return dst
}

func newNoiseGradientImage(w, h int) *image.RGBA {
	rgba := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			// radial gradient + noise
			dx := float64(x - w/2)
			dy := float64(y - h/2)
			t := math.Sqrt(dx*dx+dy*dy) / float64(w/2)
			if t > 1 {
				t = 1
			}
			base := uint8(200 - int(150*t))
			noise := uint8(rand.Intn(30))
			rgba.Set(x, y, color.RGBA{R: base + noise/3, G: base, B: 255 - base/2, A: 255})
		}
	}
	drawRect(rgba, 2, 2, w/3, h/12+1, color.RGBA{R: 255, G: 255, B: 255, A: 32})
	drawRect(rgba, w/2, h/3, w/3, h/10+1, color.RGBA{R: 0, G: 0, B: 0, A: 24})
	return rgba
}

func drawRect(dst *image.RGBA, x, y, w, h int, c color.RGBA) {
	rect := image.Rect(x, y, x+w, y+h)
	draw.Draw(dst, rect, &image.Uniform{C: c}, image.Point{}, draw.Over)
}
