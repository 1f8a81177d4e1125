package opengl

const (
	FALSE    = 0
	TRUE     = 1
	NONE     = 0
	NO_ERROR = 0

	INVALID_ENUM                  = 0x0500
	INVALID_VALUE                 = 0x0501
	INVALID_OPERATION             = 0x0502
	OUT_OF_MEMORY                 = 0x0505
	INVALID_FRAMEBUFFER_OPERATION = 0x0506

	VENDOR                   = 0x1F00
	RENDERER                 = 0x1F01
	VERSION                  = 0x1F02
	EXTENSIONS               = 0x1F03
	SHADING_LANGUAGE_VERSION = 0x8B8C
	NUM_EXTENSIONS           = 0x821D
	MAJOR_VERSION            = 0x821B
	MINOR_VERSION            = 0x821C

	MAX_TEXTURE_SIZE                 = 0x0D33
	MAX_CUBE_MAP_TEXTURE_SIZE        = 0x851C
	MAX_3D_TEXTURE_SIZE              = 0x8073
	MAX_ARRAY_TEXTURE_LAYERS         = 0x88FF
	MAX_VERTEX_ATTRIBS               = 0x8869
	MAX_COLOR_ATTACHMENTS            = 0x8CDF
	MAX_DRAW_BUFFERS                 = 0x8824
	MAX_COMBINED_TEXTURE_IMAGE_UNITS = 0x8B4D
	MAX_TEXTURE_MAX_ANISOTROPY       = 0x84FF

	// capabilities
	BLEND                         = 0x0BE2
	CULL_FACE                     = 0x0B44
	DEPTH_TEST                    = 0x0B71
	SCISSOR_TEST                  = 0x0C11
	STENCIL_TEST                  = 0x0B90
	POLYGON_OFFSET_FILL           = 0x8037
	POLYGON_OFFSET_LINE           = 0x2A02
	DEPTH_CLAMP                   = 0x864F
	PRIMITIVE_RESTART_FIXED_INDEX = 0x8D69

	// blend
	ZERO                  = 0
	ONE                   = 1
	SRC_COLOR             = 0x0300
	ONE_MINUS_SRC_COLOR   = 0x0301
	SRC_ALPHA             = 0x0302
	ONE_MINUS_SRC_ALPHA   = 0x0303
	DST_ALPHA             = 0x0304
	ONE_MINUS_DST_ALPHA   = 0x0305
	DST_COLOR             = 0x0306
	ONE_MINUS_DST_COLOR   = 0x0307
	SRC_ALPHA_SATURATE    = 0x0308
	FUNC_ADD              = 0x8006
	FUNC_SUBTRACT         = 0x800A
	FUNC_REVERSE_SUBTRACT = 0x800B

	// compare
	NEVER    = 0x0200
	LESS     = 0x0201
	EQUAL    = 0x0202
	LEQUAL   = 0x0203
	GREATER  = 0x0204
	NOTEQUAL = 0x0205
	GEQUAL   = 0x0206
	ALWAYS   = 0x0207

	// faces
	FRONT          = 0x0404
	BACK           = 0x0405
	FRONT_AND_BACK = 0x0408
	CW             = 0x0900
	CCW            = 0x0901
	POINT          = 0x1B00
	LINE           = 0x1B01
	FILL           = 0x1B02

	// stencil ops
	KEEP      = 0x1E00
	REPLACE   = 0x1E01
	INCR      = 0x1E02
	DECR      = 0x1E03
	INVERT    = 0x150A
	INCR_WRAP = 0x8507
	DECR_WRAP = 0x8508

	// primitives
	POINTS         = 0x0000
	LINES          = 0x0001
	LINE_STRIP     = 0x0003
	TRIANGLES      = 0x0004
	TRIANGLE_STRIP = 0x0005
	TRIANGLE_FAN   = 0x0006

	// clear
	DEPTH_BUFFER_BIT   = 0x00000100
	STENCIL_BUFFER_BIT = 0x00000400
	COLOR_BUFFER_BIT   = 0x00004000
	COLOR              = 0x1800
	DEPTH              = 0x1801
	STENCIL            = 0x1802
	DEPTH_STENCIL      = 0x84F9

	// types
	BYTE                           = 0x1400
	UNSIGNED_BYTE                  = 0x1401
	SHORT                          = 0x1402
	UNSIGNED_SHORT                 = 0x1403
	INT                            = 0x1404
	UNSIGNED_INT                   = 0x1405
	FLOAT                          = 0x1406
	HALF_FLOAT                     = 0x140B
	HALF_FLOAT_OES                 = 0x8D61
	UNSIGNED_SHORT_5_6_5           = 0x8363
	UNSIGNED_INT_24_8              = 0x84FA
	UNSIGNED_INT_10F_11F_11F_REV   = 0x8C3B
	FLOAT_32_UNSIGNED_INT_24_8_REV = 0x8DAD

	// buffers
	ARRAY_BUFFER         = 0x8892
	ELEMENT_ARRAY_BUFFER = 0x8893
	UNIFORM_BUFFER       = 0x8A11
	STATIC_DRAW          = 0x88E4
	DYNAMIC_DRAW         = 0x88E8
	STREAM_DRAW          = 0x88E0

	// textures
	TEXTURE_2D                  = 0x0DE1
	TEXTURE_3D                  = 0x806F
	TEXTURE_2D_ARRAY            = 0x8C1A
	TEXTURE_CUBE_MAP            = 0x8513
	TEXTURE_CUBE_MAP_ARRAY      = 0x9009
	TEXTURE_CUBE_MAP_POSITIVE_X = 0x8515
	TEXTURE0                    = 0x84C0
	TEXTURE_MIN_FILTER          = 0x2801
	TEXTURE_MAG_FILTER          = 0x2800
	TEXTURE_WRAP_S              = 0x2802
	TEXTURE_WRAP_T              = 0x2803
	TEXTURE_WRAP_R              = 0x8072
	TEXTURE_BASE_LEVEL          = 0x813C
	TEXTURE_MAX_LEVEL           = 0x813D
	TEXTURE_MAX_ANISOTROPY      = 0x84FE
	NEAREST                     = 0x2600
	LINEAR                      = 0x2601
	NEAREST_MIPMAP_NEAREST      = 0x2700
	LINEAR_MIPMAP_NEAREST       = 0x2701
	NEAREST_MIPMAP_LINEAR       = 0x2702
	LINEAR_MIPMAP_LINEAR        = 0x2703
	REPEAT                      = 0x2901
	CLAMP_TO_EDGE               = 0x812F
	CLAMP_TO_BORDER             = 0x812D
	MIRRORED_REPEAT             = 0x8370

	// pixel formats
	RED             = 0x1903
	RG              = 0x8227
	RGB             = 0x1907
	RGBA            = 0x1908
	BGRA            = 0x80E1
	LUMINANCE       = 0x1909
	LUMINANCE_ALPHA = 0x190A
	RED_INTEGER     = 0x8D94
	RGBA_INTEGER    = 0x8D99
	DEPTH_COMPONENT = 0x1902
	STENCIL_INDEX   = 0x1901

	R8                 = 0x8229
	RG8                = 0x822B
	RGB8               = 0x8051
	RGBA8              = 0x8058
	SRGB8_ALPHA8       = 0x8C43
	RGB565             = 0x8D62
	RGBA8UI            = 0x8D7C
	R16F               = 0x822D
	RG16F              = 0x822F
	RGBA16F            = 0x881A
	R32F               = 0x822E
	RG32F              = 0x8230
	RGB32F             = 0x8815
	RGBA32F            = 0x8814
	R32UI              = 0x8236
	R11F_G11F_B10F     = 0x8C3A
	DEPTH_COMPONENT16  = 0x81A5
	DEPTH_COMPONENT24  = 0x81A6
	DEPTH_COMPONENT32F = 0x8CAC
	DEPTH24_STENCIL8   = 0x88F0
	DEPTH32F_STENCIL8  = 0x8CAD
	STENCIL_INDEX8     = 0x8D48

	COMPRESSED_RGB_S3TC_DXT1_EXT  = 0x83F0
	COMPRESSED_RGBA_S3TC_DXT1_EXT = 0x83F1
	COMPRESSED_RGBA_S3TC_DXT5_EXT = 0x83F3
	COMPRESSED_RG_RGTC2           = 0x8DBD
	COMPRESSED_RGB8_ETC2          = 0x9274
	COMPRESSED_RGBA8_ETC2_EAC     = 0x9278

	// framebuffers
	FRAMEBUFFER              = 0x8D40
	READ_FRAMEBUFFER         = 0x8CA8
	DRAW_FRAMEBUFFER         = 0x8CA9
	COLOR_ATTACHMENT0        = 0x8CE0
	DEPTH_ATTACHMENT         = 0x8D00
	STENCIL_ATTACHMENT       = 0x8D20
	DEPTH_STENCIL_ATTACHMENT = 0x821A
	FRAMEBUFFER_COMPLETE     = 0x8CD5
	BACK_LEFT                = 0x0402

	// shaders
	VERTEX_SHADER          = 0x8B31
	FRAGMENT_SHADER        = 0x8B30
	GEOMETRY_SHADER        = 0x8DD9
	TESS_CONTROL_SHADER    = 0x8E88
	TESS_EVALUATION_SHADER = 0x8E87
	COMPUTE_SHADER         = 0x91B9
	COMPILE_STATUS         = 0x8B81
	LINK_STATUS            = 0x8B82
	INFO_LOG_LENGTH        = 0x8B84
	ACTIVE_UNIFORMS        = 0x8B86
	INVALID_INDEX          = 0xFFFFFFFF

	// uniform types
	FLOAT_VEC2             = 0x8B50
	FLOAT_VEC3             = 0x8B51
	FLOAT_VEC4             = 0x8B52
	FLOAT_MAT4             = 0x8B5C
	SAMPLER_2D             = 0x8B5E
	SAMPLER_3D             = 0x8B5F
	SAMPLER_CUBE           = 0x8B60
	SAMPLER_2D_SHADOW      = 0x8B62
	SAMPLER_2D_ARRAY       = 0x8DC1
	SAMPLER_CUBE_MAP_ARRAY = 0x900C
)
